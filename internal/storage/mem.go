package storage

import (
	"context"
	"sync"
	"time"
)

// MemStorage is an unbounded map. Nothing is ever evicted.
type MemStorage[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func NewMem[V any]() *MemStorage[V] {
	return &MemStorage[V]{m: make(map[string]V)}
}

// WithCapacity pre-sizes the map.
func WithCapacity[V any](capacity int) *MemStorage[V] {
	return &MemStorage[V]{m: make(map[string]V, capacity)}
}

func (s *MemStorage[V]) Get(_ context.Context, key string) (V, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemStorage[V]) Set(_ context.Context, key string, value V, _ time.Duration) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemStorage[V]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *MemStorage[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

var (
	_ KVStorage[string] = (*MemStorage[string])(nil)
	_ KVStorage[string] = (*LRUStorage[string])(nil)
)
