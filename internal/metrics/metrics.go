// Package metrics exposes solver counters on a caller-supplied registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "barcut"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeTimedOut = "timed_out"
	OutcomeFailed   = "failed"
)

// Metrics holds the solver collectors. A nil *Metrics records nothing.
type Metrics struct {
	solves   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bars     *prometheus.GaugeVec
	backends *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_total",
			Help:      "Solving runs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock duration of solving runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"strategy"}),
		bars: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bars_used",
			Help:      "Bars used by the most recent plan of each strategy.",
		}, []string{"strategy"}),
		backends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_backend_total",
			Help:      "Genetic runs by the evaluation backend that finished them.",
		}, []string{"backend"}),
	}
	reg.MustRegister(m.solves, m.duration, m.bars, m.backends)
	return m
}

// ObserveSolve records one run. Bars are only recorded for successful runs.
func (m *Metrics) ObserveSolve(strategy, outcome string, d time.Duration, bars int) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(strategy, outcome).Inc()
	m.duration.WithLabelValues(strategy).Observe(d.Seconds())
	if outcome != OutcomeFailed {
		m.bars.WithLabelValues(strategy).Set(float64(bars))
	}
}

// ObserveBackend records the backend that evaluated a genetic run.
func (m *Metrics) ObserveBackend(backend string) {
	if m == nil || backend == "" {
		return
	}
	m.backends.WithLabelValues(backend).Inc()
}
