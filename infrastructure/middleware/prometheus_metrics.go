// Package middleware provides cross-cutting observability for the arena.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zhmzlzn/modelarena/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It covers the run-level signals that matter operationally:
// round throughput by outcome, invocation latency by model, and degraded
// judge parses.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
	histograms       *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a collector registered on a dedicated
// registry. The registry is returned so callers can expose it over an
// HTTP handler without inheriting the global registry's contents.
func NewPrometheusMetrics() (*PrometheusMetrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_operation_duration_seconds",
				Help:    "Execution time of arena operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_operations_total",
				Help: "Total number of arena operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_system_state",
				Help: "Current system state values, such as active roster size.",
			},
			[]string{"metric"},
		),
		histograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_observations",
				Help:    "General purpose observations, such as request durations by model.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric", "model", "status"},
		),
	}
	return pm, registry
}

// RecordLatency records the execution time of an operation.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation, statusLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter increments an operation counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	pm.operationCounter.WithLabelValues(metric, statusLabel(labels)).Add(value)
}

// RecordGauge sets a system state value.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records one observation.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	pm.histograms.WithLabelValues(metric, labels["model"], statusLabel(labels)).Observe(value)
}

func statusLabel(labels map[string]string) string {
	if status, ok := labels["status"]; ok {
		return status
	}
	return "success"
}
