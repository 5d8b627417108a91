package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"intake/internal/consultation/handler/mocks"
	"intake/internal/consultation/models"
	"intake/internal/consultation/service"
	"intake/internal/workflow"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/requestcontext"
	"intake/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

// asReviewer stands in for the bearer token middleware.
func asReviewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-Reviewer"); id != "" {
			r = testutil.WithReviewer(r, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.now = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger, WithReviewMiddleware(asReviewer))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			s.Require().NoError(err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *HandlerSuite) consultation(eligible bool) models.Consultation {
	verdict := models.Eligible()
	if !eligible {
		verdict = models.Ineligible("see your GP")
	}
	return models.NewConsultation("hair-loss", []models.Answer{{QuestionID: "HL1", Value: "YES"}}, verdict, s.now)
}

func (s *HandlerSuite) TestListQuestions() {
	s.Run("defaults to pear allergy", func() {
		s.service.EXPECT().ListQuestions(gomock.Any(), "pear-allergy").Return([]models.Question{
			models.NewQuestion("Q1", "Are you aged 18 or over?", models.QuestionTypeYesNo, true, "NO"),
		}, nil)

		rec := s.do(http.MethodGet, "/api/consultations/questions", nil)
		s.Equal(http.StatusOK, rec.Code)

		var resp QuestionsResponse
		s.decode(rec, &resp)
		s.Equal("pear-allergy", resp.ProductID)
		s.Require().Len(resp.Questions, 1)
		s.Equal("Q1", resp.Questions[0].ID)
		s.Equal("YES_NO", resp.Questions[0].Type)
		s.True(resp.Questions[0].Required)
	})

	s.Run("unknown product is 404", func() {
		s.service.EXPECT().ListQuestions(gomock.Any(), "nope-product").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no questions found for product: nope-product"))

		rec := s.do(http.MethodGet, "/api/consultations/questions?product_id=nope-product", nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Contains(rec.Body.String(), "no questions found for product: nope-product")
	})
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("eligible submission notified", func() {
		c := s.consultation(true)
		s.service.EXPECT().
			Submit(gomock.Any(), "hair-loss", []models.Answer{{QuestionID: "HL1", Value: "YES"}}).
			Return(&service.SubmitResult{Consultation: c, Workflow: workflow.KindAsyncDoctorReview, Dispatch: workflow.DispatchNotified}, nil)

		rec := s.do(http.MethodPost, "/api/consultations", SubmitRequest{
			ProductID: "hair-loss",
			Answers:   []AnswerRequest{{QuestionID: "HL1", Answer: "YES"}},
		})
		s.Equal(http.StatusCreated, rec.Code)
		s.Equal("/api/consultations/"+c.ID, rec.Header().Get("Location"))

		var resp ConsultationResponse
		s.decode(rec, &resp)
		s.Equal(c.ID, resp.ConsultationID)
		s.True(resp.Eligible)
		s.Equal(models.EligibleMessage, resp.Message)
		s.Equal("PENDING_REVIEW", resp.Status)
		s.Equal("notified", resp.ReviewNotification)
		s.Equal("ASYNC_DOCTOR_REVIEW", resp.Workflow)
		s.True(s.now.Equal(resp.SubmittedAt))
	})

	s.Run("failed notification is still created", func() {
		c := s.consultation(true)
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&service.SubmitResult{
				Consultation:    c,
				Workflow:        workflow.KindAsyncDoctorReview,
				Dispatch:        workflow.DispatchFailed,
				NotificationErr: dErrors.New(dErrors.CodeDownstream, "failed to notify review channel"),
			}, nil)

		rec := s.do(http.MethodPost, "/api/consultations", SubmitRequest{
			ProductID: "hair-loss",
			Answers:   []AnswerRequest{{QuestionID: "HL1", Answer: "YES"}},
		})
		s.Equal(http.StatusCreated, rec.Code)
		var resp ConsultationResponse
		s.decode(rec, &resp)
		s.Equal("failed", resp.ReviewNotification)
	})

	s.Run("ineligible has no notification field", func() {
		c := s.consultation(false)
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&service.SubmitResult{Consultation: c, Dispatch: workflow.DispatchNone}, nil)

		rec := s.do(http.MethodPost, "/api/consultations", SubmitRequest{
			ProductID: "hair-loss",
			Answers:   []AnswerRequest{{QuestionID: "HL1", Answer: "NO"}},
		})
		s.Equal(http.StatusCreated, rec.Code)
		s.NotContains(rec.Body.String(), "review_notification")
		s.Contains(rec.Body.String(), "see your GP")
	})

	s.Run("service errors are mapped", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no questions found for product: acne"))

		rec := s.do(http.MethodPost, "/api/consultations", SubmitRequest{
			ProductID: "acne",
			Answers:   []AnswerRequest{{QuestionID: "A1", Answer: "YES"}},
		})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("internal errors hide their message", func() {
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to save consultation"))

		rec := s.do(http.MethodPost, "/api/consultations", SubmitRequest{
			ProductID: "hair-loss",
			Answers:   []AnswerRequest{{QuestionID: "HL1", Answer: "YES"}},
		})
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "failed to save")
	})
}

func (s *HandlerSuite) TestSubmitValidation() {
	long := func(n int) string { return strings.Repeat("x", n) }
	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "malformed json", body: "{", want: "invalid JSON body"},
		{name: "empty body", body: "", want: "request body is required"},
		{name: "missing product", body: SubmitRequest{Answers: []AnswerRequest{{QuestionID: "Q1", Answer: "YES"}}}, want: "product_id is required"},
		{name: "short product", body: SubmitRequest{ProductID: "ab", Answers: []AnswerRequest{{QuestionID: "Q1", Answer: "YES"}}}, want: "between 3 and 50"},
		{name: "long product", body: SubmitRequest{ProductID: long(51), Answers: []AnswerRequest{{QuestionID: "Q1", Answer: "YES"}}}, want: "between 3 and 50"},
		{name: "no answers", body: SubmitRequest{ProductID: "pear-allergy"}, want: "at least one answer is required"},
		{name: "blank question id", body: SubmitRequest{ProductID: "pear-allergy", Answers: []AnswerRequest{{QuestionID: " ", Answer: "YES"}}}, want: "answers[0].question_id is required"},
		{name: "long question id", body: SubmitRequest{ProductID: "pear-allergy", Answers: []AnswerRequest{{QuestionID: long(51), Answer: "YES"}}}, want: "at most 50"},
		{name: "blank answer", body: SubmitRequest{ProductID: "pear-allergy", Answers: []AnswerRequest{{QuestionID: "Q1", Answer: ""}}}, want: "answers[0].answer is required"},
		{name: "long answer", body: SubmitRequest{ProductID: "pear-allergy", Answers: []AnswerRequest{{QuestionID: "Q1", Answer: long(1001)}}}, want: "at most 1000"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodPost, "/api/consultations", tt.body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Contains(rec.Body.String(), tt.want)
		})
	}
}

func (s *HandlerSuite) TestGet() {
	s.Run("found", func() {
		c := s.consultation(true)
		s.service.EXPECT().Fetch(gomock.Any(), c.ID).Return(&c, nil)

		rec := s.do(http.MethodGet, "/api/consultations/"+c.ID, nil)
		s.Equal(http.StatusOK, rec.Code)
		var resp ConsultationResponse
		s.decode(rec, &resp)
		s.Equal(c.ID, resp.ConsultationID)
		s.Nil(resp.DoctorReview)
	})

	s.Run("missing is 404", func() {
		s.service.EXPECT().Fetch(gomock.Any(), "missing").Return(nil, nil)

		rec := s.do(http.MethodGet, "/api/consultations/missing", nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Contains(rec.Body.String(), "not_found")
	})
}

func (s *HandlerSuite) TestReview() {
	s.Run("requires a reviewer", func() {
		rec := s.do(http.MethodPost, "/api/consultations/abc/review", map[string]any{"approved": true})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("approved is required", func() {
		rec := s.do(http.MethodPost, "/api/consultations/abc/review", map[string]any{"notes": "x"}, "X-Test-Reviewer", "dr-1")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "approved is required")
	})

	s.Run("records the decision", func() {
		c := s.consultation(true)
		reviewed := c.WithDoctorReview(models.Approve("dr-1", "looks fine", s.now))
		s.service.EXPECT().
			RecordReview(gomock.Any(), c.ID, service.ReviewDecision{ReviewerID: "dr-1", Approved: true, Notes: "looks fine"}).
			DoAndReturn(func(ctx context.Context, _ string, _ service.ReviewDecision) (*models.Consultation, error) {
				s.Equal("dr-1", requestcontext.ReviewerID(ctx))
				return &reviewed, nil
			})

		rec := s.do(http.MethodPost, "/api/consultations/"+c.ID+"/review",
			map[string]any{"approved": true, "notes": " looks fine "}, "X-Test-Reviewer", "dr-1")
		s.Equal(http.StatusOK, rec.Code)

		var resp ConsultationResponse
		s.decode(rec, &resp)
		s.Equal("APPROVED", resp.Status)
		s.Require().NotNil(resp.DoctorReview)
		s.Equal("dr-1", resp.DoctorReview.ReviewedBy)
	})

	s.Run("already reviewed is 409", func() {
		s.service.EXPECT().RecordReview(gomock.Any(), "abc", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "consultation has already been reviewed"))

		rec := s.do(http.MethodPost, "/api/consultations/abc/review", map[string]any{"approved": false}, "X-Test-Reviewer", "dr-1")
		s.Equal(http.StatusConflict, rec.Code)
	})
}
