// Package cache provides a TTL cache for generated replies, keyed by a
// normalized query fingerprint. Two differently-worded queries about the
// same recognized region share an entry; unrecognized queries only collide
// on identical normalized text. Caching is a performance optimization:
// implementations degrade to misses and no-ops when their backing store is
// unreachable, never to errors.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/weathergate/weathergate/internal/region"
)

// Cache stores replies under query fingerprints with per-entry TTLs.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached reply for the query's fingerprint. Expired
	// entries are indistinguishable from absent ones.
	Get(ctx context.Context, query string) (reply string, hit bool)

	// Put stores the reply under the query's fingerprint, overwriting any
	// existing entry and restarting its TTL. A non-positive ttl selects
	// the cache's default.
	Put(ctx context.Context, query, reply string, ttl time.Duration)

	// Stats reports key count and a memory estimate for /status.
	Stats(ctx context.Context) Stats
}

// Stats is a point-in-time cache summary.
type Stats struct {
	Enabled      bool    `json:"enabled"`
	TotalKeys    int     `json:"total_keys"`
	MemoryUsedMB float64 `json:"memory_used_mb"`
}

// Fingerprint derives the cache key for a query: the canonical region id
// when an alias matches, otherwise a hash of the normalized query text.
func Fingerprint(t *region.AliasTable, query string) string {
	if id := t.Resolve(query); id != "" {
		return "region:" + id
	}
	sum := sha256.Sum256([]byte(normalize(query)))
	return "q:" + hex.EncodeToString(sum[:8])
}

// normalize lowercases and collapses whitespace so trivially reformatted
// queries hash identically.
func normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
