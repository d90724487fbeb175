package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation guarded by a RWMutex.
// It is the reference implementation used by tests and single-node
// deployments; a database-backed store can replace it behind the same
// interface.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]Task),
	}
}

func (s *MemoryStore) Create(ctx context.Context, t Task) (Task, error) {
	_ = ctx

	if t.ID == "" {
		return Task{}, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return Task{}, fmt.Errorf("task already exists: %s", t.ID)
	}
	if t.Link != nil {
		if other, ok := s.findByLinkLocked(t.UserID, t.Link.Provider, t.Link.TaskID); ok {
			return Task{}, fmt.Errorf("provider link %s/%s already held by task %s", t.Link.Provider, t.Link.TaskID, other.ID)
		}
	}

	s.tasks[t.ID] = t
	return t, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Task, bool, error) {
	_ = ctx

	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()

	return t, ok, nil
}

func (s *MemoryStore) Update(ctx context.Context, t Task) (Task, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; !ok {
		return Task{}, fmt.Errorf("task not found: %s", t.ID)
	}
	s.tasks[t.ID] = t
	return t, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Task, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0)
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}

	// Stable order for callers and tests.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (s *MemoryStore) FindByProviderLink(ctx context.Context, userID, provider, providerTaskID string) (Task, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.findByLinkLocked(userID, provider, providerTaskID)
	return t, ok, nil
}

func (s *MemoryStore) ClearProviderLinks(ctx context.Context, userID, provider string) (int, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cleared := 0
	for id, t := range s.tasks {
		if t.UserID == userID && t.Link != nil && t.Link.Provider == provider {
			t.Link = nil
			t.UpdatedAt = now
			s.tasks[id] = t
			cleared++
		}
	}
	return cleared, nil
}

// findByLinkLocked requires s.mu to be held.
func (s *MemoryStore) findByLinkLocked(userID, provider, providerTaskID string) (Task, bool) {
	for _, t := range s.tasks {
		if t.UserID == userID && t.Link != nil && t.Link.Provider == provider && t.Link.TaskID == providerTaskID {
			return t, true
		}
	}
	return Task{}, false
}
