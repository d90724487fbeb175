package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// DefaultStateTTL is how long an issued CSRF state stays valid.
const DefaultStateTTL = 10 * time.Minute

type stateEntry struct {
	userID   string
	issuedAt time.Time
}

// StateStore issues and consumes single-use CSRF state tokens for the
// authorization flow. Entries expire lazily on read; there is no background
// cleanup timer, which keeps behavior deterministic under test.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewStateStore creates a state store with the given TTL. A non-positive
// TTL falls back to DefaultStateTTL.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		entries: make(map[string]stateEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates a cryptographically random state token bound to the user.
func (s *StateStore) Issue(userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.entries[state] = stateEntry{userID: userID, issuedAt: s.now()}
	return state, nil
}

// Consume looks up and deletes the state entry. It returns false when the
// state is unknown, already consumed, or older than the TTL.
func (s *StateStore) Consume(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return "", false
	}
	delete(s.entries, state)

	if s.now().Sub(entry.issuedAt) > s.ttl {
		return "", false
	}
	return entry.userID, true
}

// pruneLocked drops expired entries. Requires s.mu to be held.
func (s *StateStore) pruneLocked() {
	cutoff := s.now().Add(-s.ttl)
	for state, entry := range s.entries {
		if entry.issuedAt.Before(cutoff) {
			delete(s.entries, state)
		}
	}
}
