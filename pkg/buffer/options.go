package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/plotstream/metric"
)

// Option configures queue behavior using the functional options pattern.
type Option[T any] func(*queueOptions[T])

// queueOptions holds internal configuration for queue instances.
// Statistics are always collected; Prometheus export is opt-in.
type queueOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]

	metricsReg    *metric.MetricsRegistry
	metricsPrefix string

	gauge       prometheus.Gauge
	dropCounter prometheus.Counter
}

// WithOverflowPolicy sets the overflow behavior. Defaults to DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithDropCallback sets a callback invoked with each dropped item.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *queueOptions[T]) {
		opts.dropCallback = callback
	}
}

// WithMetrics exposes queue depth and drop counts as Prometheus metrics
// under the given component prefix. A nil registry disables the option.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *queueOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions[T any](options ...Option[T]) queueOptions[T] {
	opts := queueOptions[T]{
		overflowPolicy: DropOldest,
	}
	for _, o := range options {
		o(&opts)
	}

	if opts.metricsReg != nil {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plotstream",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current number of queued items",
			ConstLabels: prometheus.Labels{
				"component": opts.metricsPrefix,
			},
		})
		drops := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plotstream",
			Subsystem: "queue",
			Name:      "dropped_total",
			Help:      "Items dropped by the overflow policy",
			ConstLabels: prometheus.Labels{
				"component": opts.metricsPrefix,
			},
		})
		// Registration failure (duplicate prefix) disables export but never
		// breaks the queue itself.
		if err := opts.metricsReg.RegisterGauge(opts.metricsPrefix, "queue_depth", gauge); err == nil {
			opts.gauge = gauge
		}
		if err := opts.metricsReg.RegisterCounter(opts.metricsPrefix, "queue_dropped", drops); err == nil {
			opts.dropCounter = drops
		}
	}

	return opts
}
