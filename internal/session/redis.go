package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the Redis-backed Store. History is stored as one JSON value
// per session under a key with a sliding TTL, so Redis itself enforces idle
// expiry. Append read-modify-write cycles are serialized per session id by
// an in-process keyed lock; the window bound makes cross-process append
// races converge to a valid state regardless.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	maxTurns  int
	idleTTL   time.Duration
	logger    *slog.Logger
	locks     keyedLocks
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an already-connected Redis client.
func NewRedisStore(client *redis.Client, maxTurns int, idleTTL time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: "session:",
		maxTurns:  maxTurns,
		idleTTL:   idleTTL,
		logger:    logger.With("component", "session"),
		locks:     keyedLocks{held: make(map[string]*lockEntry)},
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID + ":history"
}

func (s *RedisStore) load(ctx context.Context, sessionID string) ([]Turn, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// History returns the retained turns; reading refreshes the sliding TTL.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	turns, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) > 0 {
		if err := s.client.Expire(ctx, s.key(sessionID), s.idleTTL).Err(); err != nil {
			s.logger.Warn("ttl refresh failed", "session", sessionID, "error", err)
		}
	}
	return turns, nil
}

// AppendTurn adds a turn at the tail and rewrites the bounded window with a
// fresh TTL. Racing appends for the same id serialize on the keyed lock.
func (s *RedisStore) AppendTurn(ctx context.Context, sessionID, userText, replyText string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	turns, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}

	turns = append(turns, Turn{User: userText, Assistant: replyText, At: time.Now()})
	turns = trimWindow(turns, s.maxTurns)

	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.idleTTL).Err()
}

// Clear removes all history for the session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// TTL reports the remaining idle time Redis has for the session key.
func (s *RedisStore) TTL(ctx context.Context, sessionID string) (time.Duration, bool) {
	d, err := s.client.TTL(ctx, s.key(sessionID)).Result()
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// ActiveSessions counts session keys via SCAN.
func (s *RedisStore) ActiveSessions(ctx context.Context) int {
	var cursor uint64
	count := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"*:history", 100).Result()
		if err != nil {
			s.logger.Warn("session scan failed", "error", err)
			return count
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count
		}
	}
}

// keyedLocks serializes work per key without ever blocking distinct keys on
// one another. Entries are reference-counted and removed when the last
// holder unlocks, so the map stays proportional to in-flight sessions.
type keyedLocks struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.held[key]
	if !ok {
		e = &lockEntry{}
		k.held[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.held, key)
		}
		k.mu.Unlock()
	}
}
