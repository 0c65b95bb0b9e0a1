package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"ghostfetch/internal/shared/errs"
)

// LRUStorage keeps at most capacity entries and evicts the least recently accessed one.
// Get counts as an access. ttl is accepted and ignored.
type LRUStorage[V any] struct {
	mu    sync.Mutex
	cache *simplelru.LRU[string, V]
}

func NewLRU[V any](capacity int) (*LRUStorage[V], error) {
	cache, err := simplelru.NewLRU[string, V](capacity, nil)
	if err != nil {
		return nil, errs.New(errs.Configuration, "invalid lru capacity ", capacity).Base(err)
	}
	return &LRUStorage[V]{cache: cache}, nil
}

func (s *LRUStorage[V]) Get(_ context.Context, key string) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

func (s *LRUStorage[V]) Set(_ context.Context, key string, value V, _ time.Duration) error {
	s.mu.Lock()
	s.cache.Add(key, value)
	s.mu.Unlock()
	return nil
}

func (s *LRUStorage[V]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	s.cache.Remove(key)
	s.mu.Unlock()
	return nil
}

func (s *LRUStorage[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
