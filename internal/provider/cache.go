package provider

import (
	"sync"
	"time"

	"kolwatch/internal/domain"
)

// cacheEntry records one lookup result. data == nil is a confirmed miss:
// the provider was asked and had nothing, so don't ask again this window.
type cacheEntry struct {
	data      *domain.ProviderMetadata
	fetchedAt time.Time
}

// Cache is a per-provider TTL cache keyed by normalized mint. Transport
// failures are never stored here; only successful responses and confirmed
// misses are.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]cacheEntry
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock sets a custom clock for deterministic tests.
func (c *Cache) WithClock(clock func() time.Time) *Cache {
	c.clock = clock
	return c
}

// Get returns the cached metadata for a mint. ok is true when a fresh entry
// exists, including a confirmed-miss entry with nil metadata.
func (c *Cache) Get(mintAddr string) (*domain.ProviderMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[mintAddr]
	if !ok {
		return nil, false
	}
	if c.clock().Sub(entry.fetchedAt) > c.ttl {
		return nil, false
	}
	return entry.data, true
}

// Put stores a lookup result. meta may be nil to record a confirmed miss.
func (c *Cache) Put(mintAddr string, meta *domain.ProviderMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[mintAddr] = cacheEntry{data: meta, fetchedAt: c.clock()}
}

// Sweep drops entries older than the TTL. Housekeeping only: Get already
// ignores stale entries.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	for k, entry := range c.entries {
		if now.Sub(entry.fetchedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of entries, stale included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
