package retention

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/pkg/models"
)

var _ Archiver = (*LocalFileArchiver)(nil)

// Archiver stores expired analytics facts before they are purged.
type Archiver interface {
	Kind() string
	// Archive writes records durably and returns where they went.
	Archive(ctx context.Context, records []models.Analytics) (string, error)
}

// LocalFileArchiver writes expired facts as JSONL files, one per cycle:
//
//	{basePath}/analytics/2026-02-20T15-04-05Z.jsonl[.zst]
type LocalFileArchiver struct {
	basePath string
	compress bool
	now      func() time.Time
}

func NewLocalFileArchiver(basePath string, compress bool) *LocalFileArchiver {
	return &LocalFileArchiver{basePath: basePath, compress: compress, now: time.Now}
}

func (a *LocalFileArchiver) Kind() string { return "local" }

func (a *LocalFileArchiver) Archive(_ context.Context, records []models.Analytics) (string, error) {
	dir := filepath.Join(a.basePath, "analytics")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	filename := a.now().UTC().Format("2006-01-02T15-04-05Z") + ".jsonl"
	if a.compress {
		filename += ".zst"
	}
	fpath := filepath.Join(dir, filename)

	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	var w io.Writer = f
	var zw *zstd.Encoder
	if a.compress {
		if zw, err = zstd.NewWriter(f); err != nil {
			f.Close()
			return "", fmt.Errorf("zstd writer: %w", err)
		}
		w = zw
	}

	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			if zw != nil {
				zw.Close()
			}
			f.Close()
			return "", fmt.Errorf("encode analytics %d: %w", r.ID, err)
		}
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return "", fmt.Errorf("flush archive: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}

	log.Debug().
		Str("path", fpath).
		Int("count", len(records)).
		Msg("Archived analytics to local file")

	return fpath, nil
}
