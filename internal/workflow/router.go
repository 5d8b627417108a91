package workflow

import (
	"context"
	"log/slog"

	"intake/internal/consultation/models"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/requestcontext"
)

// Router applies the workflow table to eligible consultations.
type Router struct {
	table    Table
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithNotifier sets the asynchronous review channel. Without one, async
// review is skipped.
func WithNotifier(n Notifier) Option {
	return func(r *Router) {
		r.notifier = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router over table.
func NewRouter(table Table, opts ...Option) *Router {
	r := &Router{table: table, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WorkflowFor returns the workflow for productID.
func (r *Router) WorkflowFor(productID string) Kind {
	return r.table.Lookup(productID)
}

// Route performs the consultation's workflow. Notification is synchronous;
// a failing notifier yields DispatchFailed and a downstream_error wrapping
// the cause. A missing notifier is not an error.
func (r *Router) Route(ctx context.Context, c models.Consultation) (Dispatch, error) {
	kind := r.table.Lookup(c.ProductID)
	requestID := requestcontext.RequestID(ctx)

	switch kind {
	case KindAutomated:
		r.logger.InfoContext(ctx, "automated workflow",
			"request_id", requestID,
			"consultation_id", c.ID,
			"product_id", c.ProductID,
		)
		return DispatchNone, nil

	case KindAsyncDoctorReview:
		if r.notifier == nil {
			r.logger.WarnContext(ctx, "review notifier disabled, skipping async review",
				"request_id", requestID,
				"consultation_id", c.ID,
				"product_id", c.ProductID,
			)
			return DispatchSkipped, nil
		}
		r.logger.InfoContext(ctx, "publishing consultation for async review",
			"request_id", requestID,
			"consultation_id", c.ID,
			"product_id", c.ProductID,
		)
		if err := r.notifier.NotifySubmitted(ctx, models.SubmittedEventFrom(c)); err != nil {
			return DispatchFailed, dErrors.Wrap(err, dErrors.CodeDownstream, "failed to notify review channel")
		}
		return DispatchNotified, nil

	case KindSyncDoctorReview:
		r.logger.WarnContext(ctx, "sync doctor review not implemented",
			"request_id", requestID,
			"consultation_id", c.ID,
			"product_id", c.ProductID,
		)
		return DispatchNone, nil
	}

	return DispatchNone, dErrors.New(dErrors.CodeInvariantViolation, "unknown workflow "+string(kind))
}
