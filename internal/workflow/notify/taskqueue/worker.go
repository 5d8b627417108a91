package taskqueue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"intake/internal/consultation/models"
)

// ReviewHandlerFunc processes one review request.
type ReviewHandlerFunc func(ctx context.Context, event models.SubmittedEvent) error

// NewServeMux routes review tasks to handle. Undecodable payloads are not
// retried.
func NewServeMux(handle ReviewHandlerFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeReview, func(ctx context.Context, task *asynq.Task) error {
		event, err := ParseReviewTask(task)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return handle(ctx, event)
	})
	return mux
}
