package store

import (
	"context"
	"sync"
)

// NullStore is a no-op store that never keeps anything.
// Useful when persistence is disabled.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() *NullStore {
	return &NullStore{}
}

// Get always misses.
func (s *NullStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (s *NullStore) Set(ctx context.Context, key string, data []byte) error {
	return nil
}

// Delete does nothing.
func (s *NullStore) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

// MemoryStore keeps values in a map. It is used by tests and by embedders
// that want persistence semantics without I/O.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of data.
func (s *MemoryStore) Set(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close does nothing.
func (s *MemoryStore) Close() error {
	return nil
}

var (
	_ Store = (*NullStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
