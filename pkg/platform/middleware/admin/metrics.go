package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts gate decisions.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

// NewMetrics registers gate metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "intake_admin_gate_decisions_total",
			Help: "Admin gate decisions by outcome",
		}, []string{"outcome"}), // static_token, granted, missing_token, invalid_token, forbidden, identity_unavailable
	}
}

// IncDecision records one gate decision.
func (m *Metrics) IncDecision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}
