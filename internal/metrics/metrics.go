// Package metrics provides Prometheus metrics for the PhaseFlow server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the generation pipeline.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	RetriesTotal       *prometheus.CounterVec
	ParseFailuresTotal *prometheus.CounterVec
	CacheHitsTotal     prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phaseflow_generations_total",
				Help: "Total generation calls by operation and status.",
			},
			[]string{"operation", "status"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phaseflow_generation_duration_seconds",
				Help:    "Generation call duration by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phaseflow_generation_retries_total",
				Help: "Retried generation attempts by operation.",
			},
			[]string{"operation"},
		),
		ParseFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phaseflow_parse_failures_total",
				Help: "Model responses that failed JSON extraction or shape checks.",
			},
			[]string{"operation", "kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "phaseflow_response_cache_hits_total",
				Help: "Generation responses served from the response cache.",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phaseflow_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.GenerationsTotal)
	reg.MustRegister(m.GenerationDuration)
	reg.MustRegister(m.RetriesTotal)
	reg.MustRegister(m.ParseFailuresTotal)
	reg.MustRegister(m.CacheHitsTotal)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordGeneration increments the generation counter.
func (m *Metrics) RecordGeneration(operation, status string) {
	m.GenerationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveDuration records generation call duration.
func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	m.GenerationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordRetry increments the retry counter for an operation.
func (m *Metrics) RecordRetry(operation string) {
	m.RetriesTotal.WithLabelValues(operation).Inc()
}

// RecordParseFailure increments the parse failure counter.
func (m *Metrics) RecordParseFailure(operation, kind string) {
	m.ParseFailuresTotal.WithLabelValues(operation, kind).Inc()
}

// RecordCacheHit increments the response cache hit counter.
func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
