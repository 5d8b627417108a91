// Package guard bounds calls to a review notifier with a timeout and a
// circuit breaker, so a slow or dead channel fails fast.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"intake/internal/consultation/models"
	"intake/internal/workflow"
	"intake/pkg/platform/circuit"
	"intake/pkg/platform/sentinel"
)

// Notifier wraps another notifier.
type Notifier struct {
	next    workflow.Notifier
	breaker *circuit.Breaker
	timeout time.Duration
	logger  *slog.Logger
}

// New guards next. A non-positive timeout disables the per-call deadline.
func New(next workflow.Notifier, breaker *circuit.Breaker, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{next: next, breaker: breaker, timeout: timeout, logger: logger}
}

// NotifySubmitted forwards the event unless the breaker is open. While open
// it returns sentinel.ErrUnavailable without calling the wrapped notifier.
func (n *Notifier) NotifySubmitted(ctx context.Context, event models.SubmittedEvent) error {
	if !n.breaker.Allow() {
		return fmt.Errorf("%s circuit open: %w", n.breaker.Name(), sentinel.ErrUnavailable)
	}

	callCtx := ctx
	if n.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.next.NotifySubmitted(callCtx, event); err != nil {
		if _, change := n.breaker.RecordFailure(); change.Opened {
			n.logger.WarnContext(ctx, "review notifier circuit opened",
				"breaker", n.breaker.Name(),
				"error", err,
			)
		}
		return err
	}

	if _, change := n.breaker.RecordSuccess(); change.Closed {
		n.logger.InfoContext(ctx, "review notifier circuit closed",
			"breaker", n.breaker.Name(),
		)
	}
	return nil
}
