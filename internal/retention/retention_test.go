package retention

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/widgetdeck/control-plane/internal/config"
	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/pkg/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type failingArchiver struct{}

func (failingArchiver) Kind() string { return "failing" }
func (failingArchiver) Archive(context.Context, []models.Analytics) (string, error) {
	return "", errors.New("disk full")
}

func seeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	for _, age := range []int{45, 3, 31} {
		require.NoError(t, s.CreateAnalytics(ctx, &models.Analytics{
			EntityType: models.EntityWidget,
			EntityID:   1,
			Metric:     "impressions",
			Value:      10,
			Date:       now.AddDate(0, 0, -age),
		}))
	}
	return s
}

func newTestJanitor(s store.Store, a Archiver) *Janitor {
	j := NewJanitor(s, 30, time.Hour, a)
	j.now = func() time.Time { return now }
	return j
}

func remaining(t *testing.T, s store.Store) []models.Analytics {
	t.Helper()
	out, err := s.ListAnalytics(context.Background(), models.AnalyticsFilter{})
	require.NoError(t, err)
	return out
}

func TestRunOnce_PurgeOnly(t *testing.T) {
	s := seeded(t)

	stats, err := newTestJanitor(s, nil).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Purged)
	assert.Zero(t, stats.Archived)
	assert.Equal(t, now.AddDate(0, 0, -30), stats.Cutoff)

	left := remaining(t, s)
	require.Len(t, left, 1)
	assert.Equal(t, int64(2), left[0].ID)
}

func TestRunOnce_ArchiveFailureKeepsData(t *testing.T) {
	s := seeded(t)
	j := newTestJanitor(s, failingArchiver{})
	j.OnPurge(func(int) { t.Error("OnPurge called although nothing was purged") })

	_, err := j.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, remaining(t, s), 3)
}

func TestRunOnce_NotifiesPurge(t *testing.T) {
	s := seeded(t)
	j := newTestJanitor(s, nil)

	var purged []int
	j.OnPurge(func(n int) { purged = append(purged, n) })

	_, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2}, purged, "only cycles that removed facts notify")
}

func TestRunOnce_ArchivesBeforePurge(t *testing.T) {
	s := seeded(t)
	a := NewLocalFileArchiver(t.TempDir(), false)
	a.now = func() time.Time { return now }

	stats, err := newTestJanitor(s, a).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Archived)
	assert.Contains(t, stats.URI, "2026-03-01T12-00-00Z.jsonl")

	f, err := os.Open(stats.URI)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []int64{1, 3}, decodeIDs(t, f))
}

func TestLocalFileArchiver_Compressed(t *testing.T) {
	a := NewLocalFileArchiver(t.TempDir(), true)
	records := []models.Analytics{{ID: 7, EntityType: models.EntityRecipe, EntityID: 2, Metric: "clicks", Value: 3}}

	uri, err := a.Archive(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, ".zst", uri[len(uri)-4:])

	f, err := os.Open(uri)
	require.NoError(t, err)
	defer f.Close()
	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	assert.Equal(t, []int64{7}, decodeIDs(t, zr))
}

func TestRunOnce_NothingExpired(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	stats, err := newTestJanitor(s, failingArchiver{}).RunOnce(context.Background())
	require.NoError(t, err, "archiver must not run without expired facts")
	assert.Zero(t, stats.Purged)
}

func TestFromConfig(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	assert.Nil(t, FromConfig(s, config.RetentionConfig{}))

	j := FromConfig(s, config.RetentionConfig{Days: 7, Interval: time.Second, ArchiveDir: t.TempDir()})
	require.NotNil(t, j)
	assert.Equal(t, time.Hour, j.interval, "intervals under a minute fall back to an hour")
	assert.Equal(t, 7*24*time.Hour, j.window)
	assert.Equal(t, "local", j.archiver.Kind())
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := seeded(t)
	j := newTestJanitor(s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		left, err := s.ListAnalytics(context.Background(), models.AnalyticsFilter{})
		return err == nil && len(left) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func decodeIDs(t *testing.T, r io.Reader) []int64 {
	t.Helper()
	var ids []int64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var a models.Analytics
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		ids = append(ids, a.ID)
	}
	require.NoError(t, sc.Err())
	return ids
}
