// Package taskqueue hands review requests to a Redis-backed asynq queue.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"intake/internal/consultation/models"
)

// TaskTypeReview is the asynq task type consumed by the clinician review worker.
const TaskTypeReview = "consultation:review"

// Client is the subset of *asynq.Client used here.
type Client interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer implements workflow.Notifier with asynq tasks.
type Enqueuer struct {
	client   Client
	queue    string
	maxRetry int
	logger   *slog.Logger
}

// NewEnqueuer creates an enqueuer for queue.
func NewEnqueuer(client Client, queue string, maxRetry int, logger *slog.Logger) *Enqueuer {
	if queue == "" {
		queue = "reviews"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{client: client, queue: queue, maxRetry: maxRetry, logger: logger}
}

// Dial connects to the asynq Redis instance at addr and verifies it by
// listing queues.
func Dial(addr string) (*asynq.Client, error) {
	opt := asynq.RedisClientOpt{Addr: addr}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		return nil, fmt.Errorf("asynq redis unavailable: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// NewReviewTask builds the task for event.
func NewReviewTask(event models.SubmittedEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode review task: %w", err)
	}
	return asynq.NewTask(TaskTypeReview, payload), nil
}

// ParseReviewTask decodes a task produced by NewReviewTask.
func ParseReviewTask(task *asynq.Task) (models.SubmittedEvent, error) {
	var event models.SubmittedEvent
	if task.Type() != TaskTypeReview {
		return event, fmt.Errorf("unexpected task type %q", task.Type())
	}
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return event, fmt.Errorf("decode review task: %w", err)
	}
	return event, nil
}

// NotifySubmitted enqueues a review task. A consultation already waiting in
// the queue is not enqueued again.
func (e *Enqueuer) NotifySubmitted(ctx context.Context, event models.SubmittedEvent) error {
	task, err := NewReviewTask(event)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queue),
		asynq.MaxRetry(e.maxRetry),
		// consultation id as task id de-duplicates a re-enqueue of the same consultation
		asynq.TaskID(event.ConsultationID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		e.logger.DebugContext(ctx, "review task already enqueued",
			"consultation_id", event.ConsultationID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue review for %s: %w", event.ConsultationID, err)
	}
	e.logger.DebugContext(ctx, "review task enqueued",
		"consultation_id", event.ConsultationID,
		"task_id", info.ID,
		"queue", info.Queue,
	)
	return nil
}
