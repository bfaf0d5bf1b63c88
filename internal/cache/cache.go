// Package cache holds rendered GET responses between writes.
package cache

import (
	"sync"
	"unsafe"

	"github.com/coocood/freecache"
	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/config"
	"github.com/widgetdeck/control-plane/internal/metrics"
)

// Cache stores response bodies by request URI. Any successful write to the
// control plane clears it.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Clear()
}

type FreeCache struct {
	cache *freecache.Cache
	ttl   int
}

// New returns a freecache-backed cache, or a no-op cache when disabled.
func New(cfg config.CacheConfig) Cache {
	if !cfg.Enabled || cfg.SizeMB <= 0 {
		log.Info().Msg("Response cache disabled")
		return noopCache{}
	}

	ttl := max(int(cfg.TTL.Seconds()), 1)
	log.Info().Int("size_mb", cfg.SizeMB).Int("ttl_seconds", ttl).Msg("Response cache initialized")

	return &FreeCache{
		cache: freecache.NewCache(cfg.SizeMB * 1024 * 1024),
		ttl:   ttl,
	}
}

// keyBytes converts without allocating. freecache copies keys internally.
func keyBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *FreeCache) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(keyBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *FreeCache) Set(key string, value []byte) {
	_ = c.cache.Set(keyBytes(key), value, c.ttl)
}

func (c *FreeCache) Clear() {
	c.cache.Clear()
}

type noopCache struct{}

func (noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (noopCache) Set(_ string, _ []byte)      {}
func (noopCache) Clear()                      {}

// instrumented counts hits and misses on every Get.
type instrumented struct {
	inner   Cache
	metrics metrics.Provider
}

func (c *instrumented) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits()
	} else {
		c.metrics.IncCacheMisses()
	}
	return val, ok
}

func (c *instrumented) Set(key string, value []byte) { c.inner.Set(key, value) }
func (c *instrumented) Clear()                       { c.inner.Clear() }

// NewInstrumented wraps New with hit/miss counters. A disabled cache is
// returned unwrapped so it does not report phantom misses.
func NewInstrumented(cfg config.CacheConfig, m metrics.Provider) Cache {
	inner := New(cfg)
	if _, disabled := inner.(noopCache); disabled {
		return inner
	}
	return &instrumented{inner: inner, metrics: m}
}

// Guard orders response fills against invalidations. A reader takes the
// generation before it reads the store and fills only if no invalidation
// happened since, so a slow GET cannot put back a body a write just
// cleared.
type Guard struct {
	mu    sync.Mutex
	gen   uint64
	inner Cache
}

func NewGuard(c Cache) *Guard {
	return &Guard{inner: c}
}

func (g *Guard) Get(key string) ([]byte, bool) { return g.inner.Get(key) }

// Generation returns the current invalidation count.
func (g *Guard) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// Fill stores value when gen is still current and reports whether it did.
func (g *Guard) Fill(gen uint64, key string, value []byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return false
	}
	g.inner.Set(key, value)
	return true
}

// Invalidate drops every cached body and starts a new generation.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.inner.Clear()
}
