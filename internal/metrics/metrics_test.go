package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/piwi3910/BarCut/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveSolve("FFD", metrics.OutcomeSuccess, 2*time.Millisecond, 3)
	m.ObserveSolve("FFD", metrics.OutcomeSuccess, time.Millisecond, 2)
	m.ObserveSolve("GENETIC", metrics.OutcomeFailed, time.Millisecond, 0)

	expected := `
# HELP barcut_solve_total Solving runs by strategy and outcome.
# TYPE barcut_solve_total counter
barcut_solve_total{outcome="failed",strategy="GENETIC"} 1
barcut_solve_total{outcome="success",strategy="FFD"} 2
# HELP barcut_bars_used Bars used by the most recent plan of each strategy.
# TYPE barcut_bars_used gauge
barcut_bars_used{strategy="FFD"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"barcut_solve_total", "barcut_bars_used"))
	n, err := testutil.GatherAndCount(reg, "barcut_solve_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestObserveBackend(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveBackend("parallel")
	m.ObserveBackend("cpu")
	m.ObserveBackend("cpu")
	m.ObserveBackend("")

	n, err := testutil.GatherAndCount(reg, "barcut_evaluation_backend_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveSolve("FFD", metrics.OutcomeSuccess, time.Second, 1)
		m.ObserveBackend("cpu")
	})
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
