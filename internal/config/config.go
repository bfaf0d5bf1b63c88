package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name. Nested sections add their own
// segment: DASHBOARD_PORT, DASHBOARD_LOG_LEVEL, DASHBOARD_OTEL_ENDPOINT.
const Prefix = "DASHBOARD"

// Config holds all configuration for the dashboard control plane.
type Config struct {
	Port      int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	Version   string `envconfig:"VERSION" default:"0.1.0" validate:"required"`
	Log       LogConfig
	Seed      SeedConfig
	Cache     CacheConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig `envconfig:"OTEL"`
	Auth      AuthConfig
	Retention RetentionConfig
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `envconfig:"FORMAT" default:"console" validate:"oneof=console json"`
}

// SeedConfig controls the demo dataset loaded at startup. An empty Path
// (DASHBOARD_SEED_FILE) loads the built-in fixtures.
type SeedConfig struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Path    string `envconfig:"FILE"`
}

type CacheConfig struct {
	Enabled bool          `envconfig:"ENABLED" default:"true"`
	SizeMB  int           `envconfig:"SIZE_MB" default:"16" validate:"min=1"`
	TTL     time.Duration `envconfig:"TTL" default:"30s"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
}

type TelemetryConfig struct {
	Enabled      bool   `envconfig:"ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"ENDPOINT" default:"localhost:4317"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"widgetdeck-control-plane" validate:"required"`
}

// AuthConfig lists the API keys accepted on /api/v1. An empty list disables
// authentication. DASHBOARD_AUTH_API_KEYS is comma-separated.
type AuthConfig struct {
	APIKeys []string `envconfig:"API_KEYS"`
}

// RetentionConfig controls the analytics retention janitor. Days of 0 keeps
// analytics forever. With an ArchiveDir, expired facts are written there
// before they are purged.
type RetentionConfig struct {
	Days       int           `envconfig:"DAYS" default:"0" validate:"min=0"`
	Interval   time.Duration `envconfig:"INTERVAL" default:"1h"`
	ArchiveDir string        `envconfig:"ARCHIVE_DIR"`
	Compress   bool          `envconfig:"COMPRESS" default:"true"`
}

// Load reads configuration from DASHBOARD_* environment variables, applies
// defaults and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
