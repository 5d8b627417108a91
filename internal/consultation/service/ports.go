package service

import (
	"context"

	"intake/internal/consultation/models"
	"intake/internal/workflow"
	audit "intake/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks QuestionSource,Store,Eligibility,Router,AuditPublisher

// QuestionSource loads a product's questionnaire in presentation order.
// Unknown products yield an empty slice, not an error.
type QuestionSource interface {
	FindByProductID(ctx context.Context, productID string) ([]models.Question, error)
}

// Store persists consultations. Save is an upsert keyed by id; FindByID
// returns sentinel.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, c models.Consultation) error
	FindByID(ctx context.Context, id string) (*models.Consultation, error)
}

// Eligibility evaluates a submission with the product's strategy.
type Eligibility interface {
	Determine(productID string, questions []models.Question, answers []models.Answer) (models.EligibilityResult, error)
}

// Router performs the post-submission workflow of an eligible consultation.
type Router interface {
	WorkflowFor(productID string) workflow.Kind
	Route(ctx context.Context, c models.Consultation) (workflow.Dispatch, error)
}

// AuditPublisher records the consultation decision trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
