package flow

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus-compatible metrics for validation
// runs, for services that validate many graphs and want to watch finding
// rates over time.
//
// Metrics exposed (all namespaced with "flowcheck_"):
//
//  1. validations_total (counter): Completed validation calls.
//     Labels: status ("ok" for a returned report, "malformed" for
//     rejected input).
//
//  2. findings_total (counter): Findings emitted across all validations.
//     Labels: kind, severity.
//
//  3. validation_duration_ms (histogram): Wall time per validation call.
//     Buckets: [1, 5, 10, 50, 100, 500, 1000].
//
//  4. graph_nodes / graph_connections (gauges): Size of the most recently
//     validated graph.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := flow.NewPrometheusMetrics(registry)
//	v, _ := flow.NewValidator(flow.WithMetrics(metrics))
//
//	// Expose via HTTP for Prometheus scraping:
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: all methods may be called concurrently.
type PrometheusMetrics struct {
	validations *prometheus.CounterVec
	findings    *prometheus.CounterVec
	duration    prometheus.Histogram
	graphNodes  prometheus.Gauge
	graphConns  prometheus.Gauge

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all validation metrics with
// the provided Prometheus registry. Pass nil to use the default global
// registerer; a dedicated registry is recommended for isolation.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.validations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowcheck",
		Name:      "validations_total",
		Help:      "Completed validation calls by outcome status",
	}, []string{"status"}) // status: ok, malformed

	pm.findings = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowcheck",
		Name:      "findings_total",
		Help:      "Findings emitted across all validations",
	}, []string{"kind", "severity"})

	pm.duration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flowcheck",
		Name:      "validation_duration_ms",
		Help:      "Wall time per validation call in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
	})

	pm.graphNodes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowcheck",
		Name:      "graph_nodes",
		Help:      "Node count of the most recently validated graph",
	})

	pm.graphConns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowcheck",
		Name:      "graph_connections",
		Help:      "Connection count of the most recently validated graph",
	})

	return pm
}

// RecordValidation records a completed validation call and its duration.
// Status is "ok" when a report was produced, "malformed" when the input
// was rejected.
func (pm *PrometheusMetrics) RecordValidation(status string, d time.Duration) {
	if !pm.isEnabled() {
		return
	}
	pm.validations.WithLabelValues(status).Inc()
	pm.duration.Observe(float64(d.Milliseconds()))
}

// RecordFinding increments the finding counter for a kind and severity.
func (pm *PrometheusMetrics) RecordFinding(kind, severity string) {
	if !pm.isEnabled() {
		return
	}
	pm.findings.WithLabelValues(kind, severity).Inc()
}

// SetGraphSize updates the graph size gauges for the graph being validated.
func (pm *PrometheusMetrics) SetGraphSize(nodes, connections int) {
	if !pm.isEnabled() {
		return
	}
	pm.graphNodes.Set(float64(nodes))
	pm.graphConns.Set(float64(connections))
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
