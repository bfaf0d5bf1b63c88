// Package metrics exposes Prometheus counters for HTTP traffic, the response
// cache and facade operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Provider interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	// IncOperations counts facade calls by outcome kind ("OK" on success).
	IncOperations(verb, resource, outcome string)
}

type PrometheusProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	operations      *prometheus.CounterVec
}

func (m *PrometheusProvider) IncRequestsTotal(route string, status int) {
	m.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
}

func (m *PrometheusProvider) ObserveRequestDuration(route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *PrometheusProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *PrometheusProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *PrometheusProvider) IncOperations(verb, resource, outcome string) {
	m.operations.WithLabelValues(verb, resource, outcome).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// New returns a Prometheus-backed provider registered on reg, or a no-op
// provider when metrics are disabled.
func New(enabled bool, reg prometheus.Registerer) Provider {
	if !enabled {
		return Noop()
	}
	f := promauto.With(reg)

	return &PrometheusProvider{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_operations_total",
			Help: "Facade operations by verb, resource and outcome",
		}, []string{"verb", "resource", "outcome"}),
	}
}

// Noop returns a provider that records nothing.
func Noop() Provider { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (noopMetrics) IncCacheHits()                                    {}
func (noopMetrics) IncCacheMisses()                                  {}
func (noopMetrics) IncOperations(_, _, _ string)                     {}
