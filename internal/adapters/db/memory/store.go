package memory

import (
	"context"
	"sync"
)

// Store is an in-memory key-value store. It does not survive restarts and is meant for tests and demos.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{entries: make(map[string]string)}
}

// Get returns the value stored under key
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	return v, ok, nil
}

// Set stores value under key
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return nil
}

// Delete removes keys
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}
