// Package audit records the clinical decision trail of each consultation:
// submission verdicts, routing outcomes and clinician reviews.
package audit

import (
	"context"
	"time"
)

// Action names an audited step in a consultation's life.
type Action string

const (
	ActionSubmitted          Action = "consultation_submitted"
	ActionRouted             Action = "consultation_routed"
	ActionNotificationFailed Action = "review_notification_failed"
	ActionReviewed           Action = "consultation_reviewed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time
	ConsultationID string
	ProductID      string
	Action         Action
	// Decision is the outcome of the step, e.g. "eligible", "notified",
	// "APPROVED".
	Decision string
	Reason   string
	// ActorID identifies the clinician for review events.
	ActorID   string
	RequestID string
}

// Store persists audit events in emission order per consultation.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByConsultation(ctx context.Context, consultationID string) ([]Event, error)
}
