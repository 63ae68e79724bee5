package session

import (
	"context"
	"sync"
	"time"
)

// sessionState holds the window and idle clock for one session. Its own
// mutex serializes read-modify-write cycles so racing appends on the same
// id cannot interleave, while sessions never contend with one another.
type sessionState struct {
	mu         sync.Mutex
	turns      []Turn
	lastAccess time.Time

	// gone is set, under mu, when the state is removed from the map. A
	// writer that obtained the state before a concurrent reclaim retries
	// instead of mutating the orphan.
	gone bool
}

// MemoryStore is the in-process fallback Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	maxTurns int
	idleTTL  time.Duration

	// now is injectable for deterministic expiry tests.
	now func() time.Time
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process session store.
func NewMemoryStore(maxTurns int, idleTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionState),
		maxTurns: maxTurns,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// get returns the live state for the id, or nil. Expired sessions are
// reclaimed on sight.
func (s *MemoryStore) get(sessionID string) *sessionState {
	s.mu.RLock()
	st := s.sessions[sessionID]
	s.mu.RUnlock()
	if st == nil {
		return nil
	}

	st.mu.Lock()
	expired := s.now().Sub(st.lastAccess) >= s.idleTTL
	st.mu.Unlock()

	if expired {
		s.mu.Lock()
		// Re-check identity and expiry under both locks; a concurrent
		// append may have replaced or refreshed the entry.
		if cur := s.sessions[sessionID]; cur == st {
			st.mu.Lock()
			if s.now().Sub(st.lastAccess) >= s.idleTTL {
				st.gone = true
				delete(s.sessions, sessionID)
			}
			st.mu.Unlock()
		}
		s.mu.Unlock()
		return nil
	}
	return st
}

func (s *MemoryStore) getOrCreate(sessionID string) *sessionState {
	if st := s.get(sessionID); st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{lastAccess: s.now()}
		s.sessions[sessionID] = st
	}
	return st
}

// History returns the retained turns and slides the idle clock.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	st := s.get(sessionID)
	if st == nil {
		return nil, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gone {
		return nil, nil
	}
	st.lastAccess = s.now()
	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out, nil
}

// AppendTurn adds a turn, enforces the window, and slides the idle clock.
// A state reclaimed between lookup and lock is retried, never mutated.
func (s *MemoryStore) AppendTurn(_ context.Context, sessionID, userText, replyText string) error {
	for {
		st := s.getOrCreate(sessionID)

		st.mu.Lock()
		if st.gone {
			st.mu.Unlock()
			continue
		}
		st.turns = append(st.turns, Turn{User: userText, Assistant: replyText, At: s.now()})
		st.turns = trimWindow(st.turns, s.maxTurns)
		st.lastAccess = s.now()
		st.mu.Unlock()
		return nil
	}
}

// Clear removes the session entirely.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	if st := s.sessions[sessionID]; st != nil {
		st.mu.Lock()
		st.gone = true
		st.mu.Unlock()
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	return nil
}

// TTL reports the remaining idle time for the session.
func (s *MemoryStore) TTL(_ context.Context, sessionID string) (time.Duration, bool) {
	st := s.get(sessionID)
	if st == nil {
		return 0, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gone {
		return 0, false
	}
	remaining := s.idleTTL - s.now().Sub(st.lastAccess)
	if remaining < 0 {
		return 0, false
	}
	return remaining, true
}

// ActiveSessions counts sessions whose idle TTL has not elapsed.
func (s *MemoryStore) ActiveSessions(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, st := range s.sessions {
		st.mu.Lock()
		if now.Sub(st.lastAccess) < s.idleTTL {
			n++
		}
		st.mu.Unlock()
	}
	return n
}

// Sweep reclaims idle-expired sessions and returns the number removed.
// Intended to be called periodically by the background sweeper.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, st := range s.sessions {
		st.mu.Lock()
		if now.Sub(st.lastAccess) >= s.idleTTL {
			st.gone = true
			delete(s.sessions, id)
			removed++
		}
		st.mu.Unlock()
	}
	return removed
}
