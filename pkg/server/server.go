// Package server provides the public entry point for initializing the
// dashboard control plane.
//
// Usage:
//
//	cfg, err := config.Load()
//	srv, err := server.New(ctx, cfg)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/config"
	"github.com/widgetdeck/control-plane/internal/di"
	"github.com/widgetdeck/control-plane/internal/retention"
	"github.com/widgetdeck/control-plane/internal/seed"
	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/internal/telemetry"
)

// Server holds the initialized control plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store backing the facade.
	Store store.Store

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc stops background work, closes the store and flushes
	// telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all control plane components, loads the seed dataset when
// enabled and returns a ready Server.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	app, cleanup, err := di.InitApp(cfg)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("init app: %w", err)
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	shutdown := func(ctx context.Context) error {
		stopBackground()
		cleanup()
		return shutdownTelemetry(ctx)
	}

	if cfg.Seed.Enabled {
		if err := loadSeed(ctx, app.Facade, cfg.Seed); err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
	}

	if janitor := retention.FromConfig(app.Store, cfg.Retention); janitor != nil {
		janitor.OnPurge(func(int) { app.Cache.Invalidate() })
		go janitor.Start(bgCtx)
	}

	return &Server{
		Handler:      app.Handler,
		Store:        app.Store,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

func loadSeed(ctx context.Context, ex seed.Executor, cfg config.SeedConfig) error {
	fx := seed.Default()
	if cfg.Path != "" {
		var err error
		if fx, err = seed.ReadFile(cfg.Path); err != nil {
			return err
		}
		log.Info().Str("file", cfg.Path).Msg("Loading seed file")
	}
	if _, err := seed.Load(ctx, ex, fx); err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	return nil
}
