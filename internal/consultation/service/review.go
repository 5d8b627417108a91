package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intake/internal/consultation/models"
	dErrors "intake/pkg/domain-errors"
	audit "intake/pkg/platform/audit"
	"intake/pkg/platform/sentinel"
	"intake/pkg/requestcontext"
)

// ReviewDecision is a clinician's verdict on a pending consultation.
type ReviewDecision struct {
	ReviewerID string
	Approved   bool
	Notes      string
}

// RecordReview applies a clinician decision. Only PENDING_REVIEW
// consultations accept a review; the read and write run in one StoreTx so
// concurrent reviews of the same consultation cannot both succeed.
func (s *Service) RecordReview(ctx context.Context, id string, decision ReviewDecision) (*models.Consultation, error) {
	ctx, span := s.tracer.Start(ctx, "consultation.RecordReview",
		trace.WithAttributes(attribute.String("consultation_id", id)),
	)
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consultation id is required")
	}
	if strings.TrimSpace(decision.ReviewerID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reviewer is required")
	}

	var reviewed models.Consultation
	err := s.tx.RunInTx(ctx, id, func(ctx context.Context, store Store) error {
		current, err := store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "consultation not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consultation")
		}
		if current.IsReviewed() {
			return dErrors.New(dErrors.CodeConflict, "consultation has already been reviewed")
		}

		now := requestcontext.Now(ctx)
		var review models.DoctorReview
		if decision.Approved {
			review = models.Approve(decision.ReviewerID, decision.Notes, now)
		} else {
			review = models.Reject(decision.ReviewerID, decision.Notes, now)
		}
		reviewed = current.WithDoctorReview(review)

		if err := store.Save(ctx, reviewed); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review failed")
		return nil, err
	}

	// emitted only once the review has committed
	s.emitAudit(ctx, audit.Event{
		ConsultationID: reviewed.ID,
		ProductID:      reviewed.ProductID,
		Action:         audit.ActionReviewed,
		Decision:       string(reviewed.Status),
		Reason:         decision.Notes,
		ActorID:        decision.ReviewerID,
	})
	s.metrics.IncrementReview(string(reviewed.Status))
	s.logger.InfoContext(ctx, "consultation reviewed",
		"request_id", requestcontext.RequestID(ctx),
		"consultation_id", reviewed.ID,
		"reviewer_id", decision.ReviewerID,
		"status", reviewed.Status,
	)
	return &reviewed, nil
}
