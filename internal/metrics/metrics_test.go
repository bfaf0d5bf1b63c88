package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop_WhenDisabled(t *testing.T) {
	m := New(false, prometheus.NewRegistry())
	_, ok := m.(noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.IncRequestsTotal("/api/v1/widgets", 200)
	m.ObserveRequestDuration("/api/v1/widgets", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncOperations("GET", "widgets", "OK")
}

func TestPrometheusProvider_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(true, reg)
	p, ok := m.(*PrometheusProvider)
	require.True(t, ok, "should return PrometheusProvider when enabled")

	m.IncRequestsTotal("/api/v1/widgets", 200)
	m.IncRequestsTotal("/api/v1/widgets", 201)
	m.IncRequestsTotal("/api/v1/widgets", 404)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncCacheMisses()
	m.IncOperations("POST", "widgets", "INVALID_RELATIONSHIP")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.requestsTotal.WithLabelValues("/api/v1/widgets", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requestsTotal.WithLabelValues("/api/v1/widgets", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("POST", "widgets", "INVALID_RELATIONSHIP")))
}

func TestHTTPStatusBucket(t *testing.T) {
	tests := map[int]string{101: "1xx", 200: "2xx", 304: "3xx", 422: "4xx", 500: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, httpStatusBucket(code), "code %d", code)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Each registry accepts its own set of collectors.
	assert.NotPanics(t, func() {
		New(true, prometheus.NewRegistry())
		New(true, prometheus.NewRegistry())
	})
}
