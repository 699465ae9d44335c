// Package metrics exposes Prometheus instrumentation for risk assessments and the
// assessment cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anc"

// Metrics owns a private registry so tests and multiple servers do not collide on
// the global one. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	assessments  *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed care gap risk assessments by scorer and tier.",
		}, []string{"scorer", "tier"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_errors_total",
			Help:      "Failed risk assessments by error code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Time spent serving an assessment, cache hits included.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"scorer"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Assessment cache lookups by tier and result.",
		}, []string{"tier", "result"}),
	}
	reg.MustRegister(
		m.assessments, m.errors, m.duration, m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAssessment records a successful assessment.
func (m *Metrics) ObserveAssessment(scorer, tier string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(scorer, tier).Inc()
	m.duration.WithLabelValues(scorer).Observe(elapsed.Seconds())
}

// ObserveError records a failed assessment.
func (m *Metrics) ObserveError(code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(code).Inc()
}

// ObserveCacheLookup records a hit, miss or error on a cache tier.
func (m *Metrics) ObserveCacheLookup(tier, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier, result).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
