// Package di assembles the control plane's object graph with google/wire.
package di

import (
	"net/http"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/api"
	"github.com/widgetdeck/control-plane/internal/api/handlers"
	"github.com/widgetdeck/control-plane/internal/api/middleware"
	"github.com/widgetdeck/control-plane/internal/cache"
	"github.com/widgetdeck/control-plane/internal/composer"
	"github.com/widgetdeck/control-plane/internal/config"
	"github.com/widgetdeck/control-plane/internal/facade"
	"github.com/widgetdeck/control-plane/internal/metrics"
	"github.com/widgetdeck/control-plane/internal/rules"
	"github.com/widgetdeck/control-plane/internal/store"
)

// App is the assembled control plane, ready to serve.
type App struct {
	Handler http.Handler
	Store   store.Store
	Facade  *facade.Facade
	Cache   *cache.Guard
}

func NewApp(h http.Handler, s store.Store, f *facade.Facade, c *cache.Guard) *App {
	return &App{Handler: h, Store: s, Facade: f, Cache: c}
}

// ProviderSet lists every constructor InitApp needs.
var ProviderSet = wire.NewSet(
	NewStore,
	wire.Bind(new(store.Store), new(*store.MemoryStore)),
	NewRegistry,
	NewMetrics,
	NewCache,
	cache.NewGuard,
	NewHandlers,
	wire.Bind(new(handlers.Service), new(*facade.Facade)),
	NewRouter,
	rules.New,
	composer.New,
	facade.New,
	NewApp,
)

// NewStore opens the in-memory store; the cleanup closes it.
func NewStore() (*store.MemoryStore, func()) {
	s := store.NewMemoryStore()
	log.Info().Msg("In-memory store initialized")
	return s, func() {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewMetrics(cfg *config.Config, reg *prometheus.Registry) metrics.Provider {
	return metrics.New(cfg.Metrics.Enabled, reg)
}

func NewCache(cfg *config.Config, m metrics.Provider) cache.Cache {
	return cache.NewInstrumented(cfg.Cache, m)
}

func NewHandlers(cfg *config.Config, svc handlers.Service, c *cache.Guard) *handlers.Handlers {
	return handlers.New(svc, c, cfg.Version)
}

func NewRouter(cfg *config.Config, h *handlers.Handlers, m metrics.Provider, reg *prometheus.Registry) http.Handler {
	opts := api.Options{
		Metrics: m,
		Auth:    middleware.NewAPIKeyAuth(cfg.Auth.APIKeys),
	}
	if cfg.Metrics.Enabled {
		opts.Gatherer = reg
	}
	if opts.Auth.Enabled() {
		log.Info().Int("keys", len(cfg.Auth.APIKeys)).Msg("API key authentication enabled")
	}
	return api.NewRouter(h, opts)
}
