// Package kafka publishes review requests to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"intake/internal/consultation/models"
)

// DefaultTopic carries consultations awaiting asynchronous review.
const DefaultTopic = "consultation-submitted"

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks Producer

// Producer is the subset of the platform Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Publisher serialises SubmittedEvent as JSON keyed by consultation id, so all
// records for one consultation land on the same partition.
type Publisher struct {
	producer Producer
	topic    string
}

// NewPublisher creates a publisher. An empty topic uses DefaultTopic.
func NewPublisher(producer Producer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) NotifySubmitted(ctx context.Context, event models.SubmittedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode submitted event: %w", err)
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(event.ConsultationID), value); err != nil {
		return fmt.Errorf("publish consultation %s: %w", event.ConsultationID, err)
	}
	return nil
}
