// Package monitoring exposes Prometheus metrics for the analysis engine:
// run outcomes, per-stage latency, cache effectiveness, and numeric
// self-check violations.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	analyses       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	cacheEvents    *prometheus.CounterVec
	invariants     prometheus.Counter
	providerErrors *prometheus.CounterVec
}

// NewMetrics creates and registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarscout",
			Name:      "analyses_total",
			Help:      "Analyses by terminal status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solarscout",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarscout",
			Name:      "cache_events_total",
			Help:      "Cache hits and misses by cache name.",
		}, []string{"cache", "result"}),
		invariants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solarscout",
			Name:      "invariant_violations_total",
			Help:      "Numeric self-check violations (should stay zero).",
		}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarscout",
			Name:      "provider_errors_total",
			Help:      "Degraded external provider calls by provider.",
		}, []string{"provider"}),
	}

	if reg != nil {
		reg.MustRegister(m.analyses, m.stageDuration, m.cacheEvents, m.invariants, m.providerErrors)
	}
	return m
}

// AnalysisFinished records a terminal analysis status.
func (m *Metrics) AnalysisFinished(status string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status).Inc()
}

// ObserveStage records a stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CacheEvent records a hit or miss against a named cache.
func (m *Metrics) CacheEvent(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheEvents.WithLabelValues(cache, result).Inc()
}

// InvariantViolations adds to the self-check violation counter.
func (m *Metrics) InvariantViolations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invariants.Add(float64(n))
}

// ProviderError records a degraded provider call.
func (m *Metrics) ProviderError(provider string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider).Inc()
}
