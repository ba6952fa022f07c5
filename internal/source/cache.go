package source

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Cache is a single-valued-per-key TTL cache for fetched document bodies.
// It bounds upstream load under polling: repeated fetches within the window
// reuse the last successful body. Last write wins; entries may be up to one
// TTL stale.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body []byte
	at   time.Time
}

// NewCache creates a Cache with the given TTL. A nil clock uses time.Now.
func NewCache(ttl time.Duration, now Clock) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached body for key if it is still within the TTL.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return nil, false
	}
	return e.body, true
}

// Put stores body for key, stamped with the current time.
func (c *Cache) Put(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{body: body, at: c.now()}
}

// Invalidate drops the entry for key, forcing the next fetch to go upstream.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// cachedSource wraps a Source with a Cache.
type cachedSource struct {
	src   Source
	cache *Cache
}

// WithCache returns a Source that serves from cache within the TTL window
// and stores each successful fetch. Failed fetches are never cached.
func WithCache(src Source, cache *Cache) Source {
	return &cachedSource{src: src, cache: cache}
}

func (c *cachedSource) Name() string { return c.src.Name() }

func (c *cachedSource) Fetch(ctx context.Context) ([]byte, error) {
	if body, ok := c.cache.Get(c.src.Name()); ok {
		return body, nil
	}
	body, err := c.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Put(c.src.Name(), body)
	return body, nil
}
