package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/widgetdeck/control-plane/internal/api/handlers"
	"github.com/widgetdeck/control-plane/internal/api/middleware"
	"github.com/widgetdeck/control-plane/internal/metrics"
)

// Options configures the router beyond the handlers themselves.
type Options struct {
	Metrics  metrics.Provider
	Gatherer prometheus.Gatherer // nil disables /metrics
	Auth     *middleware.APIKeyAuth
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	if opts.Auth == nil {
		opts.Auth = middleware.NewAPIKeyAuth(nil)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(opts.Auth.Middleware)

	// Health & info
	r.Get("/health", h.Health)
	r.Get("/version", h.VersionInfo)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1: every dashboard resource shares one set of routes. Unknown
	// resources are rejected by the facade as unsupported operations.
	r.Route("/api/v1/{resource}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/evaluate", h.EvaluateDelivery)
		})
	})

	return r
}
