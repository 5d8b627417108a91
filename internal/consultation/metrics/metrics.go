package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the consultation module.
type Metrics struct {
	// Submissions by product and provisional verdict
	Submissions *prometheus.CounterVec

	// Routing dispatches by workflow and outcome
	Dispatches *prometheus.CounterVec

	// Review notifications that failed after the consultation was saved
	NotificationFailures *prometheus.CounterVec

	// Clinician decisions by outcome
	Reviews *prometheus.CounterVec

	// End-to-end submit latency
	SubmitLatency prometheus.Histogram
}

// New registers the consultation metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_consultation_submissions_total",
			Help: "Consultations submitted, by product and provisional eligibility",
		}, []string{"product_id", "eligible"}),

		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_consultation_dispatches_total",
			Help: "Workflow routing results for eligible consultations",
		}, []string{"workflow", "dispatch"}),

		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_review_notification_failures_total",
			Help: "Review notifications that failed after the consultation was persisted",
		}, []string{"product_id"}),

		Reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_consultation_reviews_total",
			Help: "Clinician review decisions by resulting status",
		}, []string{"status"}),

		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_consultation_submit_duration_seconds",
			Help:    "Duration of a submission including persistence and routing",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementSubmission records a submission outcome.
func (m *Metrics) IncrementSubmission(productID string, eligible bool) {
	if m != nil {
		m.Submissions.WithLabelValues(productID, strconv.FormatBool(eligible)).Inc()
	}
}

// IncrementDispatch records what routing did.
func (m *Metrics) IncrementDispatch(workflow, dispatch string) {
	if m != nil {
		m.Dispatches.WithLabelValues(workflow, dispatch).Inc()
	}
}

// IncrementNotificationFailure records a failed review notification.
func (m *Metrics) IncrementNotificationFailure(productID string) {
	if m != nil {
		m.NotificationFailures.WithLabelValues(productID).Inc()
	}
}

// IncrementReview records a clinician decision.
func (m *Metrics) IncrementReview(status string) {
	if m != nil {
		m.Reviews.WithLabelValues(status).Inc()
	}
}

// ObserveSubmitLatency records the total submit duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
