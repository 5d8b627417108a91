package taskqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/consultation/models"
)

func TestServeMux(t *testing.T) {
	t.Run("dispatches decoded events", func(t *testing.T) {
		var got models.SubmittedEvent
		mux := NewServeMux(func(_ context.Context, event models.SubmittedEvent) error {
			got = event
			return nil
		})

		event := models.SubmittedEvent{ConsultationID: "c-1", ProductID: "hair-loss", PreliminaryEligible: true}
		task, err := NewReviewTask(event)
		require.NoError(t, err)

		require.NoError(t, mux.ProcessTask(context.Background(), task))
		assert.Equal(t, event, got)
	})

	t.Run("bad payload skips retry", func(t *testing.T) {
		mux := NewServeMux(func(context.Context, models.SubmittedEvent) error {
			t.Fatal("handler must not run")
			return nil
		})

		err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskTypeReview, []byte("{")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		mux := NewServeMux(func(context.Context, models.SubmittedEvent) error { return boom })

		task, err := NewReviewTask(models.SubmittedEvent{ConsultationID: "c-2"})
		require.NoError(t, err)
		assert.ErrorIs(t, mux.ProcessTask(context.Background(), task), boom)
	})
}
