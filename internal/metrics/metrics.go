// Package metrics holds the Prometheus collectors for the harness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the step-level collectors. A nil *Metrics is safe to
// use; every method no-ops.
type Metrics struct {
	stepExecutions *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	challenges     prometheus.Counter
}

// New creates the collectors and registers them on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stepExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threedsflow_step_executions_total",
				Help: "Step executions by step number and outcome",
			},
			[]string{"step", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "threedsflow_step_duration_seconds",
				Help: "Duration of backend executor calls per step",
			},
			[]string{"step"},
		),
		challenges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "threedsflow_challenges_total",
				Help: "Interactive 3DS challenges presented",
			},
		),
	}
	reg.MustRegister(m.stepExecutions, m.stepDuration, m.challenges)
	return m
}

// ObserveStep records one executor call.
func (m *Metrics) ObserveStep(step string, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.stepExecutions.WithLabelValues(step, outcome).Inc()
	m.stepDuration.WithLabelValues(step).Observe(seconds)
}

// ObserveChallenge records a presented challenge.
func (m *Metrics) ObserveChallenge() {
	if m == nil {
		return
	}
	m.challenges.Inc()
}
