package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/widgetdeck/control-plane/internal/config"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoad_Defaults(t *testing.T) {
	// envconfig also falls back to the unprefixed name.
	for _, key := range []string{"DASHBOARD_PORT", "PORT", "DASHBOARD_SEED_FILE", "FILE"} {
		unsetenv(t, key)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Seed.Enabled)
	assert.Empty(t, cfg.Seed.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 16, cfg.Cache.SizeMB)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "widgetdeck-control-plane", cfg.Telemetry.ServiceName)
	assert.Zero(t, cfg.Retention.Days)
	assert.Equal(t, time.Hour, cfg.Retention.Interval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DASHBOARD_PORT", "9191")
	t.Setenv("DASHBOARD_LOG_LEVEL", "debug")
	t.Setenv("DASHBOARD_LOG_FORMAT", "json")
	t.Setenv("DASHBOARD_SEED_ENABLED", "false")
	t.Setenv("DASHBOARD_SEED_FILE", "/etc/dashboard/seed.json")
	t.Setenv("DASHBOARD_CACHE_TTL", "5m")
	t.Setenv("DASHBOARD_OTEL_ENABLED", "true")
	t.Setenv("DASHBOARD_OTEL_ENDPOINT", "collector:4317")
	t.Setenv("DASHBOARD_RETENTION_DAYS", "90")
	t.Setenv("DASHBOARD_RETENTION_ARCHIVE_DIR", "/var/lib/dashboard/archive")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Seed.Enabled)
	assert.Equal(t, "/etc/dashboard/seed.json", cfg.Seed.Path)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 90, cfg.Retention.Days)
	assert.Equal(t, "/var/lib/dashboard/archive", cfg.Retention.ArchiveDir)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"DASHBOARD_PORT":          "70000",
		"DASHBOARD_LOG_LEVEL":     "loud",
		"DASHBOARD_LOG_FORMAT":    "xml",
		"DASHBOARD_CACHE_SIZE_MB": "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}

	t.Run("unparsable", func(t *testing.T) {
		t.Setenv("DASHBOARD_PORT", "eighty")
		_, err := config.Load()
		assert.Error(t, err)
	})
}
