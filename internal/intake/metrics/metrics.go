package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeSuccess  = "success"
)

// Metrics provides observability for the intake module.
// Tracks submissions by outcome, store latency and PDF exports.
type Metrics struct {
	Submissions   *prometheus.CounterVec
	Deletes       prometheus.Counter
	StoreDuration *prometheus.HistogramVec
	Exports       *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Intake submissions by outcome",
		}, []string{"outcome"}),
		Deletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_submissions_deleted_total",
			Help: "Submissions deleted by admins",
		}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_store_duration_seconds",
			Help:    "Duration of submission store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_pdf_exports_total",
			Help: "PDF exports by outcome",
		}, []string{"outcome"}),
	}
}

// IncSubmission records one submission attempt.
func (m *Metrics) IncSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// IncDelete records one delete.
func (m *Metrics) IncDelete() {
	if m != nil {
		m.Deletes.Inc()
	}
}

// ObserveStore records a store call. Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStore(op string, start time.Time) {
	if m != nil {
		m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// IncExport records one PDF export attempt.
func (m *Metrics) IncExport(outcome string) {
	if m != nil {
		m.Exports.WithLabelValues(outcome).Inc()
	}
}
