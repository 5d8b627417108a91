package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"intake/internal/consultation/models"
	"intake/internal/consultation/service"
	"intake/internal/consultation/store/consultation"
	"intake/internal/consultation/store/question"
	"intake/internal/eligibility"
	"intake/internal/workflow"
	workflowmocks "intake/internal/workflow/mocks"
	dErrors "intake/pkg/domain-errors"
	audit "intake/pkg/platform/audit"
	"intake/pkg/platform/audit/publisher"
	auditmemory "intake/pkg/platform/audit/store/memory"
	"intake/pkg/requestcontext"
)

// FlowSuite drives the orchestrator with the real strategies, catalog,
// router and in-memory stores. Only the review channel is mocked.
type FlowSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	notifier *workflowmocks.MockNotifier
	store    *consultation.InMemory
	audit    *auditmemory.InMemoryStore
	service  *service.Service
	now      time.Time
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

func (s *FlowSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.notifier = workflowmocks.NewMockNotifier(s.ctrl)
	s.store = consultation.NewInMemory()
	s.audit = auditmemory.NewInMemoryStore()
	s.now = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	s.service = s.newService(workflow.WithNotifier(s.notifier))
}

func (s *FlowSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FlowSuite) newService(routerOpts ...workflow.Option) *service.Service {
	return service.New(
		question.Seeded(),
		s.store,
		eligibility.NewService(eligibility.NewRegistry(eligibility.Builtin()...)),
		workflow.NewRouter(workflow.DefaultTable(), routerOpts...),
		service.WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
}

func (s *FlowSuite) ctx() context.Context {
	return requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-flow"), s.now)
}

func answers(pairs ...string) []models.Answer {
	out := make([]models.Answer, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Answer{QuestionID: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func (s *FlowSuite) TestEligiblePearAllergyIsAutomated() {
	result, err := s.service.Submit(s.ctx(), "pear-allergy", answers("Q1", "YES", "Q2", "YES", "Q3", "NO"))
	s.Require().NoError(err)

	c := result.Consultation
	s.True(c.Eligibility.Eligible)
	s.Equal(models.EligibleMessage, c.Eligibility.Reason)
	s.Equal(models.StatusPendingReview, c.Status)
	s.Equal(s.now, c.SubmittedAt)
	s.Equal(workflow.KindAutomated, result.Workflow)
	s.Equal(workflow.DispatchNone, result.Dispatch)

	stored, err := s.service.Fetch(s.ctx(), c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.True(c.Equal(*stored))
	s.Equal(c.Answers, stored.Answers)
}

func (s *FlowSuite) TestAnaphylaxisIsIneligibleAndNotRouted() {
	result, err := s.service.Submit(s.ctx(), "pear-allergy", answers("Q1", "YES", "Q2", "YES", "Q3", "YES"))
	s.Require().NoError(err)

	s.False(result.Consultation.Eligibility.Eligible)
	s.Contains(result.Consultation.Eligibility.Reason, "GP")
	s.Equal(models.StatusPendingReview, result.Consultation.Status)
	s.Equal(workflow.DispatchNone, result.Dispatch)

	stored, err := s.service.Fetch(s.ctx(), result.Consultation.ID)
	s.Require().NoError(err)
	s.NotNil(stored)
}

func (s *FlowSuite) TestUnknownProductPersistsNothing() {
	_, err := s.service.Submit(s.ctx(), "unknown-product", answers("Q1", "YES"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(err.Error(), "no questions found for product: unknown-product")
}

func (s *FlowSuite) TestEligibleHairLossNotifiesOnce() {
	var published models.SubmittedEvent
	s.notifier.EXPECT().NotifySubmitted(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event models.SubmittedEvent) error {
			published = event
			return nil
		}).Times(1)

	result, err := s.service.Submit(s.ctx(), "hair-loss", answers("HL1", "YES", "HL2", "NO", "HL3", "NO"))
	s.Require().NoError(err)

	s.Equal(workflow.KindAsyncDoctorReview, result.Workflow)
	s.Equal(workflow.DispatchNotified, result.Dispatch)
	s.Equal(result.Consultation.ID, published.ConsultationID)
	s.Equal("hair-loss", published.ProductID)
	s.True(published.PreliminaryEligible)

	events, err := s.audit.ListByConsultation(context.Background(), result.Consultation.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionSubmitted, events[0].Action)
	s.Equal(audit.ActionRouted, events[1].Action)
	s.Equal("req-flow", events[1].RequestID)
}

func (s *FlowSuite) TestIneligibleHairLossIsNotNotified() {
	result, err := s.service.Submit(s.ctx(), "hair-loss", answers("HL1", "YES", "HL2", "YES", "HL3", "NO"))
	s.Require().NoError(err)
	s.False(result.Consultation.Eligibility.Eligible)
	s.Contains(result.Consultation.Eligibility.Reason, "specialist")
}

func (s *FlowSuite) TestNoNotifierConfigured() {
	svc := s.newService()
	result, err := svc.Submit(s.ctx(), "hair-loss", answers("HL1", "YES", "HL2", "NO", "HL3", "NO"))
	s.Require().NoError(err)
	s.Equal(workflow.DispatchSkipped, result.Dispatch)
	s.Nil(result.NotificationErr)
}

func (s *FlowSuite) TestNotifierFailureStillSaves() {
	s.notifier.EXPECT().NotifySubmitted(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	result, err := s.service.Submit(s.ctx(), "hair-loss", answers("HL1", "YES", "HL2", "NO", "HL3", "NO"))
	s.Require().NoError(err)
	s.Equal(workflow.DispatchFailed, result.Dispatch)
	s.Require().Error(result.NotificationErr)

	stored, err := s.service.Fetch(s.ctx(), result.Consultation.ID)
	s.Require().NoError(err)
	s.NotNil(stored)

	events, err := s.audit.ListByConsultation(context.Background(), result.Consultation.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionNotificationFailed, events[1].Action)
}

func (s *FlowSuite) TestFetchUnknownReturnsNil() {
	c, err := s.service.Fetch(s.ctx(), "does-not-exist")
	s.Require().NoError(err)
	s.Nil(c)
}

func (s *FlowSuite) submitPear() models.Consultation {
	result, err := s.service.Submit(s.ctx(), "pear-allergy", answers("Q1", "YES", "Q2", "YES", "Q3", "NO"))
	s.Require().NoError(err)
	return result.Consultation
}

func (s *FlowSuite) TestRecordReview() {
	s.Run("approve", func() {
		c := s.submitPear()
		reviewed, err := s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr-1", Approved: true, Notes: "fine"})
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, reviewed.Status)
		s.Require().NotNil(reviewed.DoctorReview)
		s.Equal("dr-1", reviewed.DoctorReview.ReviewedBy)
		s.Equal(s.now, reviewed.DoctorReview.ReviewedAt)

		stored, err := s.service.Fetch(s.ctx(), c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, stored.Status)
	})

	s.Run("reject", func() {
		c := s.submitPear()
		reviewed, err := s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr-2", Notes: "see GP"})
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, reviewed.Status)
		s.Equal("see GP", reviewed.DoctorReview.Notes)
	})

	s.Run("already reviewed is a conflict", func() {
		c := s.submitPear()
		_, err := s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr-1", Approved: true})
		s.Require().NoError(err)

		_, err = s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr-2"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		stored, err := s.service.Fetch(s.ctx(), c.ID)
		s.Require().NoError(err)
		s.Equal("dr-1", stored.DoctorReview.ReviewedBy)
	})

	s.Run("unknown consultation", func() {
		_, err := s.service.RecordReview(s.ctx(), "missing", service.ReviewDecision{ReviewerID: "dr-1"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("reviewer is required", func() {
		c := s.submitPear()
		_, err := s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "  "})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("review event audited", func() {
		c := s.submitPear()
		_, err := s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr-3", Approved: true})
		s.Require().NoError(err)

		events, err := s.audit.ListByConsultation(context.Background(), c.ID)
		s.Require().NoError(err)
		last := events[len(events)-1]
		s.Equal(audit.ActionReviewed, last.Action)
		s.Equal("dr-3", last.ActorID)
		s.Equal(string(models.StatusApproved), last.Decision)
	})
}

// failingCommitTx runs fn against store and then fails as a rejected commit would.
type failingCommitTx struct {
	store service.Store
}

func (t failingCommitTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, store service.Store) error) error {
	if err := fn(ctx, t.store); err != nil {
		return err
	}
	return errors.New("commit failed")
}

func (s *FlowSuite) TestReviewNotAuditedWhenCommitFails() {
	c := s.submitPear()
	svc := service.New(
		question.Seeded(),
		s.store,
		eligibility.NewService(eligibility.NewRegistry(eligibility.Builtin()...)),
		workflow.NewRouter(workflow.DefaultTable()),
		service.WithAuditPublisher(publisher.NewPublisher(s.audit)),
		service.WithStoreTx(failingCommitTx{store: s.store}),
	)

	_, err := svc.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr-4", Approved: true})
	s.Require().Error(err)

	events, err := s.audit.ListByConsultation(context.Background(), c.ID)
	s.Require().NoError(err)
	for _, e := range events {
		s.NotEqual(audit.ActionReviewed, e.Action)
	}
}

func (s *FlowSuite) TestConcurrentReviewsAcceptOne() {
	c := s.submitPear()

	const reviewers = 20
	var (
		wg        sync.WaitGroup
		accepted  atomic.Int32
		conflicts atomic.Int32
	)
	for i := range reviewers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.RecordReview(s.ctx(), c.ID, service.ReviewDecision{ReviewerID: "dr", Approved: i%2 == 0})
			switch {
			case err == nil:
				accepted.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load())
	s.Equal(int32(reviewers-1), conflicts.Load())
}
