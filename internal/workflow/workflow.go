// Package workflow decides what happens to an eligible consultation after
// submission: nothing further, or an asynchronous hand-off to clinicians.
package workflow

import (
	"context"
	"fmt"

	"intake/internal/consultation/models"
)

// Kind is the review path a product follows.
type Kind string

const (
	KindAutomated         Kind = "AUTOMATED"
	KindAsyncDoctorReview Kind = "ASYNC_DOCTOR_REVIEW"
	// KindSyncDoctorReview is declared for completeness; no product routes to
	// it and the router does not implement it.
	KindSyncDoctorReview Kind = "SYNC_DOCTOR_REVIEW"
)

// ParseKind converts a configured workflow name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAutomated, KindAsyncDoctorReview, KindSyncDoctorReview:
		return k, nil
	}
	return "", fmt.Errorf("unknown workflow %q", s)
}

// Dispatch describes what routing did with a consultation.
type Dispatch string

const (
	// DispatchNone means the workflow requires no external action.
	DispatchNone Dispatch = "none"
	// DispatchNotified means the review channel accepted the event.
	DispatchNotified Dispatch = "notified"
	// DispatchSkipped means review was required but no channel is configured.
	DispatchSkipped Dispatch = "skipped"
	// DispatchFailed means the review channel rejected or timed out.
	DispatchFailed Dispatch = "failed"
)

//go:generate mockgen -source=workflow.go -destination=mocks/mocks.go -package=mocks Notifier

// Notifier hands an eligible consultation to the asynchronous review channel.
type Notifier interface {
	NotifySubmitted(ctx context.Context, event models.SubmittedEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event models.SubmittedEvent) error

func (f NotifierFunc) NotifySubmitted(ctx context.Context, event models.SubmittedEvent) error {
	return f(ctx, event)
}
