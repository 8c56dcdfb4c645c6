package storage

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage is an in-process Adapter. It is the default backend when a
// client does not configure one.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-memory adapter.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set stores a copy of value.
func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	s.data[key] = slices.Clone(value)
	s.mu.Unlock()
	return nil
}

// Remove deletes key. Idempotent.
func (s *MemoryStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Clear drops every stored key.
func (s *MemoryStorage) Clear(context.Context) error {
	s.mu.Lock()
	clear(s.data)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Ensure MemoryStorage implements Adapter
var (
	_ Adapter = (*MemoryStorage)(nil)
	_ Clearer = (*MemoryStorage)(nil)
)
