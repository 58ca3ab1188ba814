package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCounter(name string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plotstream",
		Subsystem: "test",
		Name:      name,
	})
}

func TestRegisterAndUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	c := newTestCounter("ops_total")
	require.NoError(t, r.RegisterCounter("store", "ops", c))

	assert.True(t, r.Unregister("store", "ops"))
	assert.False(t, r.Unregister("store", "ops"))

	// Re-registration after unregister succeeds.
	require.NoError(t, r.RegisterCounter("store", "ops", newTestCounter("ops_total")))
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	r := NewMetricsRegistry()

	require.NoError(t, r.RegisterCounter("store", "ops", newTestCounter("a_total")))
	err := r.RegisterCounter("store", "ops", newTestCounter("b_total"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestPrometheusNameConflictRejected(t *testing.T) {
	r := NewMetricsRegistry()

	require.NoError(t, r.RegisterCounter("a", "ops", newTestCounter("same_total")))
	// Different registry key, identical prometheus name and labels.
	err := r.RegisterCounter("b", "ops", newTestCounter("same_total"))
	require.Error(t, err)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	r := NewMetricsRegistry()

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "plotstream_test_depth"})
	require.NoError(t, r.RegisterGauge("queue", "depth", g))

	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "plotstream_test_latency"})
	require.NoError(t, r.RegisterHistogram("queue", "latency", h))

	// Registry serves gathered families including the runtime collectors.
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
