package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/widgetdeck/control-plane/internal/config"
)

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := setupLogging(config.LogConfig{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Errorf("GlobalLevel() = %v, want %v", got, zerolog.DebugLevel)
	}

	if err := setupLogging(config.LogConfig{Level: "loud", Format: "console"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
