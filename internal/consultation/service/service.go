// Package service orchestrates consultation intake: it loads the product's
// questionnaire, evaluates eligibility, persists the consultation and routes
// eligible ones into review.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intake/internal/consultation/metrics"
	"intake/internal/consultation/models"
	"intake/internal/workflow"
	dErrors "intake/pkg/domain-errors"
	audit "intake/pkg/platform/audit"
	"intake/pkg/platform/sentinel"
	"intake/pkg/requestcontext"
)

// Service is the consultation orchestrator.
type Service struct {
	questions   QuestionSource
	store       Store
	tx          StoreTx
	eligibility Eligibility
	router      Router

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

// WithStoreTx replaces the default in-process review locking, e.g. with a
// database transaction.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New wires the orchestrator.
func New(questions QuestionSource, store Store, eligibility Eligibility, router Router, opts ...Option) *Service {
	s := &Service{
		questions:   questions,
		store:       store,
		eligibility: eligibility,
		router:      router,
		logger:      slog.Default(),
		tracer:      otel.Tracer("intake/consultation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store)
	}
	return s
}

// SubmitResult is a persisted consultation and what routing did with it.
type SubmitResult struct {
	Consultation models.Consultation
	Workflow     workflow.Kind
	Dispatch     workflow.Dispatch
	// NotificationErr is set when Dispatch is DispatchFailed. The
	// consultation is saved regardless.
	NotificationErr error
}

// Submit evaluates and persists a questionnaire submission and, when eligible,
// routes it. A failing review notification does not fail the submission; it is
// reported through SubmitResult.
func (s *Service) Submit(ctx context.Context, productID string, answers []models.Answer) (*SubmitResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "consultation.Submit",
		trace.WithAttributes(attribute.String("product_id", productID)),
	)
	defer span.End()

	result, err := s.submit(ctx, productID, answers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("consultation_id", result.Consultation.ID),
		attribute.Bool("eligible", result.Consultation.Eligibility.Eligible),
		attribute.String("dispatch", string(result.Dispatch)),
	)
	s.metrics.ObserveSubmitLatency(time.Since(start))
	return result, nil
}

func (s *Service) submit(ctx context.Context, productID string, answers []models.Answer) (*SubmitResult, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "product id is required")
	}
	if len(answers) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one answer is required")
	}

	questions, err := s.loadQuestions(ctx, productID)
	if err != nil {
		return nil, err
	}

	verdict, err := s.eligibility.Determine(productID, questions, answers)
	if err != nil {
		return nil, err
	}

	c := models.NewConsultation(productID, answers, verdict, requestcontext.Now(ctx))
	if err := s.store.Save(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consultation")
	}
	s.metrics.IncrementSubmission(productID, verdict.Eligible)
	s.emitAudit(ctx, audit.Event{
		ConsultationID: c.ID,
		ProductID:      productID,
		Action:         audit.ActionSubmitted,
		Decision:       eligibilityDecision(verdict),
		Reason:         verdict.Reason,
	})
	s.logger.InfoContext(ctx, "consultation submitted",
		"request_id", requestcontext.RequestID(ctx),
		"consultation_id", c.ID,
		"product_id", productID,
		"eligible", verdict.Eligible,
	)

	result := &SubmitResult{Consultation: c, Dispatch: workflow.DispatchNone}
	if !verdict.Eligible {
		return result, nil
	}

	result.Workflow = s.router.WorkflowFor(productID)
	dispatch, err := s.router.Route(ctx, c)
	result.Dispatch = dispatch
	s.metrics.IncrementDispatch(string(result.Workflow), string(dispatch))
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeDownstream) {
			return nil, err
		}
		result.NotificationErr = err
		s.metrics.IncrementNotificationFailure(productID)
		s.logger.ErrorContext(ctx, "review notification failed",
			"request_id", requestcontext.RequestID(ctx),
			"consultation_id", c.ID,
			"product_id", productID,
			"error", err,
		)
		s.emitAudit(ctx, audit.Event{
			ConsultationID: c.ID,
			ProductID:      productID,
			Action:         audit.ActionNotificationFailed,
			Decision:       string(dispatch),
			Reason:         err.Error(),
		})
		return result, nil
	}

	s.emitAudit(ctx, audit.Event{
		ConsultationID: c.ID,
		ProductID:      productID,
		Action:         audit.ActionRouted,
		Decision:       string(dispatch),
		Reason:         string(result.Workflow),
	})
	return result, nil
}

// Fetch returns a consultation by id, or nil when it does not exist.
func (s *Service) Fetch(ctx context.Context, id string) (*models.Consultation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consultation id is required")
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consultation")
	}
	return c, nil
}

// ListQuestions returns a product's questionnaire in presentation order.
func (s *Service) ListQuestions(ctx context.Context, productID string) ([]models.Question, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "product id is required")
	}
	return s.loadQuestions(ctx, productID)
}

func (s *Service) loadQuestions(ctx context.Context, productID string) ([]models.Question, error) {
	questions, err := s.questions.FindByProductID(ctx, productID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load questions")
	}
	if len(questions) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no questions found for product: "+productID)
	}
	return questions, nil
}

// emitAudit records an event without failing the caller; audit outages are
// logged.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"consultation_id", event.ConsultationID,
			"error", err,
		)
	}
}

func eligibilityDecision(r models.EligibilityResult) string {
	if r.Eligible {
		return "eligible"
	}
	return "ineligible"
}
