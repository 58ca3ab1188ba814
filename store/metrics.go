package store

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/plotstream/metric"
)

// storeMetrics tracks append activity. Created only when a registry is
// supplied; a nil storeMetrics disables everything.
type storeMetrics struct {
	appends     prometheus.Counter
	writeCursor prometheus.Gauge
	seriesCount prometheus.Gauge
}

func newStoreMetrics(registry *metric.MetricsRegistry) (*storeMetrics, error) {
	m := &storeMetrics{
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plotstream",
			Subsystem: "store",
			Name:      "appends_total",
			Help:      "Total samples appended to the ring store",
		}),
		writeCursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plotstream",
			Subsystem: "store",
			Name:      "write_cursor",
			Help:      "Monotone write cursor (samples ever appended)",
		}),
		seriesCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plotstream",
			Subsystem: "store",
			Name:      "series",
			Help:      "Number of registered series",
		}),
	}

	if err := registry.RegisterCounter("store", "appends", m.appends); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("store", "write_cursor", m.writeCursor); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("store", "series", m.seriesCount); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *storeMetrics) recordAppend(cursor uint64, seriesCount int) {
	m.appends.Inc()
	m.writeCursor.Set(float64(cursor))
	m.seriesCount.Set(float64(seriesCount))
}
