// Package metric provides Prometheus metrics management for PlotStream.
//
// Components receive an optional *MetricsRegistry through their Deps struct;
// a nil registry means metrics are disabled and components must behave
// identically without them. The registry tracks registrations per component
// to surface duplicate-name conflicts early, and Server exposes everything
// over HTTP at /metrics.
package metric
