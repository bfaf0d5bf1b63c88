// Package retention expires old analytics facts. A janitor sweeps the store
// on an interval, archives facts older than the retention window when an
// archiver is configured, and purges them.
//
// Archiving is fail-safe: the purge runs in the same store transaction as
// the archive write, so facts are kept when archiving fails.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/config"
	"github.com/widgetdeck/control-plane/internal/store"
)

// CycleStats tracks what happened in a single retention cycle.
type CycleStats struct {
	Cutoff   time.Time
	Purged   int
	Archived int
	URI      string
}

// Janitor periodically archives and purges expired analytics.
type Janitor struct {
	store    store.Store
	window   time.Duration
	interval time.Duration
	archiver Archiver
	onPurge  func(n int)
	now      func() time.Time
}

// NewJanitor creates a janitor keeping the last days of analytics. A nil
// archiver purges without archiving.
func NewJanitor(s store.Store, days int, interval time.Duration, archiver Archiver) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	return &Janitor{
		store:    s,
		window:   time.Duration(days) * 24 * time.Hour,
		interval: interval,
		archiver: archiver,
		now:      time.Now,
	}
}

// FromConfig builds the janitor described by cfg, or returns nil when
// retention is disabled.
func FromConfig(s store.Store, cfg config.RetentionConfig) *Janitor {
	if cfg.Days <= 0 {
		return nil
	}
	var archiver Archiver
	if cfg.ArchiveDir != "" {
		archiver = NewLocalFileArchiver(cfg.ArchiveDir, cfg.Compress)
	}
	return NewJanitor(s, cfg.Days, cfg.Interval, archiver)
}

// OnPurge registers fn to run after every cycle that removed facts, e.g. to
// drop cached reads of them.
func (j *Janitor) OnPurge(fn func(n int)) {
	j.onPurge = fn
}

// Start runs a cycle immediately and then on every tick. It blocks until
// ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	ev := log.Info().
		Dur("interval", j.interval).
		Dur("window", j.window)
	if j.archiver != nil {
		ev = ev.Str("archiver", j.archiver.Kind())
	}
	ev.Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			j.runCycle(ctx)
		}
	}
}

func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	stats, err := j.RunOnce(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Retention cycle failed")
		return
	}
	if stats.Purged > 0 {
		log.Info().
			Int("purged", stats.Purged).
			Int("archived", stats.Archived).
			Str("uri", stats.URI).
			Time("cutoff", stats.Cutoff).
			Dur("elapsed", time.Since(start)).
			Msg("Retention cycle complete")
	}
}

// RunOnce performs one sweep. When archiving fails nothing is purged.
func (j *Janitor) RunOnce(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{Cutoff: j.now().Add(-j.window)}

	err := j.store.WithTx(ctx, func(tx store.Tx) error {
		expired, err := tx.PurgeAnalytics(ctx, stats.Cutoff)
		if err != nil {
			return err
		}
		if len(expired) == 0 || j.archiver == nil {
			stats.Purged = len(expired)
			return nil
		}

		uri, err := j.archiver.Archive(ctx, expired)
		if err != nil {
			return fmt.Errorf("archive %d analytics: %w", len(expired), err)
		}
		stats.Purged = len(expired)
		stats.Archived = len(expired)
		stats.URI = uri
		return nil
	})
	if err != nil {
		return CycleStats{Cutoff: stats.Cutoff}, err
	}
	if stats.Purged > 0 && j.onPurge != nil {
		j.onPurge(stats.Purged)
	}
	return stats, nil
}
