package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/widgetdeck/control-plane/internal/metrics"
)

// Metrics records request counts and latency per chi route pattern, so
// /api/v1/widgets/1 and /api/v1/widgets/2 share one series.
func Metrics(m metrics.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.IncRequestsTotal(route, rw.statusCode)
			m.ObserveRequestDuration(route, time.Since(start))
		})
	}
}
