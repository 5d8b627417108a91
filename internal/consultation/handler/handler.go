// Package handler exposes the consultation intake HTTP API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"intake/internal/consultation/models"
	"intake/internal/consultation/service"
	"intake/internal/eligibility"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/httputil"
	"intake/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the consultation orchestrator as seen by the transport.
type Service interface {
	ListQuestions(ctx context.Context, productID string) ([]models.Question, error)
	Submit(ctx context.Context, productID string, answers []models.Answer) (*service.SubmitResult, error)
	Fetch(ctx context.Context, id string) (*models.Consultation, error)
	RecordReview(ctx context.Context, id string, decision service.ReviewDecision) (*models.Consultation, error)
}

// Handler wires consultation endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger

	submitMiddleware []func(http.Handler) http.Handler
	reviewMiddleware []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSubmitMiddleware wraps the submission route, e.g. with a rate limiter.
func WithSubmitMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.submitMiddleware = append(h.submitMiddleware, mw...)
	}
}

// WithReviewMiddleware wraps the review route, typically with reviewer
// authentication.
func WithReviewMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.reviewMiddleware = append(h.reviewMiddleware, mw...)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the consultation endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/consultations", func(r chi.Router) {
		r.Get("/questions", h.HandleListQuestions)
		r.With(h.submitMiddleware...).Post("/", h.HandleSubmit)
		r.Get("/{id}", h.HandleGet)
		r.With(h.reviewMiddleware...).Post("/{id}/review", h.HandleReview)
	})
}

// HandleListQuestions handles GET /api/consultations/questions.
func (h *Handler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
	if productID == "" {
		productID = eligibility.ProductPearAllergy
	}

	questions, err := h.service.ListQuestions(ctx, productID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list questions",
			"request_id", requestID,
			"product_id", productID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromQuestions(productID, questions))
}

// HandleSubmit handles POST /api/consultations.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Submit(ctx, req.ProductID, req.DomainAnswers())
	if err != nil {
		h.logError(ctx, "consultation submission failed", err,
			"request_id", requestID,
			"product_id", req.ProductID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consultation accepted",
		"request_id", requestID,
		"consultation_id", result.Consultation.ID,
		"product_id", req.ProductID,
		"eligible", result.Consultation.Eligibility.Eligible,
		"dispatch", result.Dispatch,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Location", "/api/consultations/"+result.Consultation.ID)
	httputil.WriteJSON(w, http.StatusCreated, fromSubmitResult(result))
}

// HandleGet handles GET /api/consultations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := h.service.Fetch(ctx, id)
	if err != nil {
		h.logError(ctx, "failed to fetch consultation", err,
			"request_id", requestcontext.RequestID(ctx),
			"consultation_id", id,
		)
		httputil.WriteError(w, err)
		return
	}
	if c == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "consultation not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromConsultation(*c))
}

// HandleReview handles POST /api/consultations/{id}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	reviewerID := requestcontext.ReviewerID(ctx)
	if reviewerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reviewed, err := h.service.RecordReview(ctx, id, service.ReviewDecision{
		ReviewerID: reviewerID,
		Approved:   *req.Approved,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logError(ctx, "consultation review failed", err,
			"request_id", requestID,
			"consultation_id", id,
			"reviewer_id", reviewerID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromConsultation(*reviewed))
}

// logError logs client faults as warnings and everything else as errors.
func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}
