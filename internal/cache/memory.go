package cache

import (
	"context"
	"sync"
	"time"

	"github.com/weathergate/weathergate/internal/region"
)

type memoryEntry struct {
	reply     string
	createdAt time.Time
	ttl       time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// MemoryCache is the in-process fallback Cache used when Redis is not
// available. Entries expire lazily on read; Sweep reclaims them eagerly.
// It does not survive a process restart and is not shared across processes.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	aliases    *region.AliasTable
	defaultTTL time.Duration

	// now is injectable for deterministic expiry tests.
	now func() time.Time
}

// Compile-time interface check.
var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache(aliases *region.AliasTable, defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		aliases:    aliases,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached reply for the query's fingerprint.
func (c *MemoryCache) Get(_ context.Context, query string) (string, bool) {
	key := Fingerprint(c.aliases, query)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return "", false
	}
	return e.reply, true
}

// Put stores the reply, overwriting any existing entry for the fingerprint.
func (c *MemoryCache) Put(_ context.Context, query, reply string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := Fingerprint(c.aliases, query)

	c.mu.Lock()
	c.entries[key] = memoryEntry{reply: reply, createdAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

// Stats counts live entries and estimates their memory footprint.
func (c *MemoryCache) Stats(_ context.Context) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var keys int
	var bytes int
	for k, e := range c.entries {
		if e.expired(now) {
			continue
		}
		keys++
		bytes += len(k) + len(e.reply)
	}
	return Stats{
		Enabled:      true,
		TotalKeys:    keys,
		MemoryUsedMB: float64(bytes) / (1 << 20),
	}
}

// Sweep removes expired entries and returns the number reclaimed. Intended
// to be called periodically by the background sweeper.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
