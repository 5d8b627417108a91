package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"intake/internal/consultation/models"
	"intake/internal/workflow"
	"intake/internal/workflow/mocks"
	dErrors "intake/pkg/domain-errors"
)

type RouterSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	notifier *mocks.MockNotifier
	logger   *slog.Logger
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *RouterSuite) consultation(productID string) models.Consultation {
	return models.NewConsultation(productID, []models.Answer{{QuestionID: "Q1", Value: "YES"}}, models.Eligible(), time.Now())
}

func (s *RouterSuite) TestAutomatedProductsAreNotNotified() {
	router := workflow.NewRouter(workflow.DefaultTable(), workflow.WithNotifier(s.notifier), workflow.WithLogger(s.logger))

	dispatch, err := router.Route(s.ctx, s.consultation("pear-allergy"))
	s.Require().NoError(err)
	s.Equal(workflow.DispatchNone, dispatch)
}

func (s *RouterSuite) TestAsyncReviewNotifiesOnce() {
	router := workflow.NewRouter(workflow.DefaultTable(), workflow.WithNotifier(s.notifier), workflow.WithLogger(s.logger))
	c := s.consultation("hair-loss")

	s.notifier.EXPECT().
		NotifySubmitted(gomock.Any(), models.SubmittedEvent{ConsultationID: c.ID, ProductID: "hair-loss", PreliminaryEligible: true}).
		Return(nil).
		Times(1)

	dispatch, err := router.Route(s.ctx, c)
	s.Require().NoError(err)
	s.Equal(workflow.DispatchNotified, dispatch)
}

func (s *RouterSuite) TestAsyncReviewWithoutNotifierIsSkipped() {
	router := workflow.NewRouter(workflow.DefaultTable(), workflow.WithLogger(s.logger))

	dispatch, err := router.Route(s.ctx, s.consultation("hair-loss"))
	s.Require().NoError(err)
	s.Equal(workflow.DispatchSkipped, dispatch)
}

func (s *RouterSuite) TestNotifierFailureIsDownstream() {
	router := workflow.NewRouter(workflow.DefaultTable(), workflow.WithNotifier(s.notifier), workflow.WithLogger(s.logger))
	cause := errors.New("broker down")
	s.notifier.EXPECT().NotifySubmitted(gomock.Any(), gomock.Any()).Return(cause)

	dispatch, err := router.Route(s.ctx, s.consultation("hair-loss"))
	s.Require().Error(err)
	s.Equal(workflow.DispatchFailed, dispatch)
	s.True(dErrors.HasCode(err, dErrors.CodeDownstream))
	s.ErrorIs(err, cause)
}

func (s *RouterSuite) TestSyncReviewIsLoggedOnly() {
	table := workflow.NewTable(map[string]workflow.Kind{"tele-derm": workflow.KindSyncDoctorReview}, "")
	router := workflow.NewRouter(table, workflow.WithNotifier(s.notifier), workflow.WithLogger(s.logger))

	dispatch, err := router.Route(s.ctx, s.consultation("tele-derm"))
	s.Require().NoError(err)
	s.Equal(workflow.DispatchNone, dispatch)
}

func (s *RouterSuite) TestUnknownProductsFallBackToAsyncReview() {
	router := workflow.NewRouter(workflow.DefaultTable())

	s.Equal(workflow.KindAutomated, router.WorkflowFor("pear-allergy"))
	s.Equal(workflow.KindAsyncDoctorReview, router.WorkflowFor("hair-loss"))
	s.Equal(workflow.KindAsyncDoctorReview, router.WorkflowFor("anything-else"))
}
