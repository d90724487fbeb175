package credential

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type pairKey struct {
	userID   string
	provider string
}

// MemoryStore is an in-memory Store implementation guarded by a RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[pairKey]Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[pairKey]Credential),
	}
}

func (s *MemoryStore) Find(ctx context.Context, userID, provider string) (Credential, bool, error) {
	_ = ctx

	s.mu.RLock()
	c, ok := s.creds[pairKey{userID, provider}]
	s.mu.RUnlock()

	return c, ok, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, c Credential) (Credential, error) {
	_ = ctx

	if c.UserID == "" || c.Provider == "" {
		return Credential{}, fmt.Errorf("credential requires user ID and provider")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{c.UserID, c.Provider}
	now := time.Now()
	if existing, ok := s.creds[key]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	s.creds[key] = c
	return c, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, provider string) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID, provider}
	if _, ok := s.creds[key]; !ok {
		return false, nil
	}
	delete(s.creds, key)
	return true, nil
}
