// Package metrics provides the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis paths recorded in the analyses_total "path" label.
const (
	PathKnownThreat = "known_threat"
	PathInvalid     = "invalid"
	PathFeatures    = "features"
	PathCached      = "cached"
	PathFallback    = "fallback"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	riskScores       prometheus.Histogram
	lookupFailures   prometheus.Counter
	scanLogFailures  prometheus.Counter
	rateLimited      prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them on a dedicated registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "analyses_total",
			Help:      "Completed analyses by path and verdict.",
		}, []string{"path", "verdict"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veritas",
			Name:      "analysis_duration_seconds",
			Help:      "Time spent in Analyze, including collaborator calls.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		riskScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veritas",
			Name:      "risk_score",
			Help:      "Distribution of returned risk scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "threat_lookup_failures_total",
			Help:      "Known-threat lookups that failed, timed out or were rejected by the breaker.",
		}),
		scanLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "scan_log_failures_total",
			Help:      "Scan log writes that failed and were discarded.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veritas",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.analyses,
		m.analysisDuration,
		m.riskScores,
		m.lookupFailures,
		m.scanLogFailures,
		m.rateLimited,
		m.httpRequests,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAnalysis records one completed analysis.
func (m *Metrics) ObserveAnalysis(path, verdict string, score int, d time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(path, verdict).Inc()
	m.analysisDuration.Observe(d.Seconds())
	m.riskScores.Observe(float64(score))
}

// LookupFailed counts a failed known-threat lookup.
func (m *Metrics) LookupFailed() {
	if m == nil {
		return
	}
	m.lookupFailures.Inc()
}

// ScanLogFailed counts a discarded scan log write.
func (m *Metrics) ScanLogFailed() {
	if m == nil {
		return
	}
	m.scanLogFailures.Inc()
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
