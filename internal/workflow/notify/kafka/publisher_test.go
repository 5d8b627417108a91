package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"intake/internal/consultation/models"
	"intake/internal/workflow/notify/kafka/mocks"
)

func TestPublisher_NotifySubmitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	pub := NewPublisher(producer, "")
	event := models.SubmittedEvent{ConsultationID: "c-1", ProductID: "hair-loss", PreliminaryEligible: true}

	producer.EXPECT().
		Publish(gomock.Any(), DefaultTopic, []byte("c-1"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ []byte, value []byte) error {
			var got map[string]any
			require.NoError(t, json.Unmarshal(value, &got))
			assert.Equal(t, "c-1", got["consultation_id"])
			assert.Equal(t, "hair-loss", got["product_id"])
			assert.Equal(t, true, got["preliminary_eligible"])
			return nil
		})

	require.NoError(t, pub.NotifySubmitted(context.Background(), event))
}

func TestPublisher_ProducerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	pub := NewPublisher(producer, "reviews")
	brokerDown := errors.New("broker down")

	producer.EXPECT().Publish(gomock.Any(), "reviews", gomock.Any(), gomock.Any()).Return(brokerDown)

	err := pub.NotifySubmitted(context.Background(), models.SubmittedEvent{ConsultationID: "c-2"})
	require.ErrorIs(t, err, brokerDown)
	assert.Contains(t, err.Error(), "c-2")
}
