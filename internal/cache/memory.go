package cache

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store, used by tests and --no-cache runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, prompt string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[prompt]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, prompt string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[prompt] = e
	return nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
