package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weathergate/weathergate/internal/region"
)

// RedisCache is the Redis-backed Cache. Backend failures degrade to misses
// on Get and no-ops on Put with a logged warning; they are never surfaced
// to the request path.
type RedisCache struct {
	client     *redis.Client
	aliases    *region.AliasTable
	keyPrefix  string
	defaultTTL time.Duration
	logger     *slog.Logger
}

// Compile-time interface check.
var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps an already-connected Redis client.
func NewRedisCache(client *redis.Client, aliases *region.AliasTable, keyPrefix string, defaultTTL time.Duration, logger *slog.Logger) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "answer"
	}
	return &RedisCache{
		client:     client,
		aliases:    aliases,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
		logger:     logger.With("component", "cache"),
	}
}

func (c *RedisCache) key(query string) string {
	return c.keyPrefix + ":" + Fingerprint(c.aliases, query)
}

// Get returns the cached reply for the query's fingerprint. Redis enforces
// expiry itself, so a present key is always live.
func (c *RedisCache) Get(ctx context.Context, query string) (string, bool) {
	reply, err := c.client.Get(ctx, c.key(query)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed, treating as miss", "error", err)
		}
		return "", false
	}
	return reply, true
}

// Put stores the reply with SET EX, overwriting any existing entry.
func (c *RedisCache) Put(ctx context.Context, query, reply string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.key(query), reply, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed, skipping", "error", err)
	}
}

// Stats counts keys under the cache prefix and reads Redis memory usage.
func (c *RedisCache) Stats(ctx context.Context) Stats {
	stats := Stats{Enabled: true}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+":*", 100).Result()
		if err != nil {
			c.logger.Warn("cache stats scan failed", "error", err)
			break
		}
		stats.TotalKeys += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if info, err := c.client.Info(ctx, "memory").Result(); err == nil {
		stats.MemoryUsedMB = parseUsedMemoryMB(info)
	}

	return stats
}

// parseUsedMemoryMB extracts used_memory (bytes) from INFO memory output.
func parseUsedMemoryMB(info string) float64 {
	for line := range strings.Lines(info) {
		if rest, ok := strings.CutPrefix(line, "used_memory:"); ok {
			rest = strings.TrimSpace(rest)
			if bytes, err := strconv.ParseFloat(rest, 64); err == nil {
				return bytes / (1 << 20)
			}
		}
	}
	return 0
}
