package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"ghostfetch/internal/metrics"
	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/logger"
	"ghostfetch/internal/shared/types"
	"ghostfetch/internal/storage"
	"ghostfetch/internal/transport"
)

// Storage is a read-through, write-through adapter: a local expiring LRU in front of Client.
// Remote round-trips never hold the local cache lock. A read-through fill that
// overlaps a Set or Delete is returned but not cached.
type Storage[V any] struct {
	client *Client
	local  *expirable.LRU[string, V]
	// writes 在每次 Set/Delete 后递增，读穿透期间有写入则不回填本地缓存。
	// mu 只保护 writes 与本地缓存的检查加更新，不跨远端请求持有。
	mu     sync.Mutex
	writes uint64
}

func New[V any](client *Client, cacheSize int, expire time.Duration) *Storage[V] {
	return &Storage[V]{
		client: client,
		local:  expirable.NewLRU[string, V](cacheSize, nil, expire),
	}
}

// NewFromConfig builds the adapter from the [worker_kv] section.
func NewFromConfig[V any](conf types.WorkerKVConf, r transport.Requester) (*Storage[V], error) {
	if conf.Endpoint == "" {
		return nil, errs.New(errs.Configuration, "worker kv config(section: worker_kv) not found")
	}
	client, err := NewClient(conf.Endpoint, conf.Token, r)
	if err != nil {
		return nil, err
	}
	l := logger.WithComponent("Storage/Remote")
	l.Info().
		Str("endpoint", conf.Endpoint).
		Int("cache_size", conf.CacheSize).
		Int("expire_sec", conf.ExpireSec).
		Msg("Remote KV storage configured")
	return New[V](client, conf.CacheSize, time.Duration(conf.ExpireSec)*time.Second), nil
}

func (s *Storage[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if v, ok := s.local.Get(key); ok {
		metrics.RecordCache(true)
		return v, true, nil
	}
	metrics.RecordCache(false)

	s.mu.Lock()
	seen := s.writes
	s.mu.Unlock()
	data, err := s.client.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := storage.Decode[V](data)
	if err != nil {
		return zero, false, err
	}
	s.mu.Lock()
	if s.writes == seen {
		s.local.Add(key, v)
	}
	s.mu.Unlock()
	return v, true, nil
}

// Set writes to the remote store first; the local copy is only updated on success.
// ttl is not forwarded to the worker.
func (s *Storage[V]) Set(ctx context.Context, key string, value V, _ time.Duration) error {
	data, err := storage.Encode(value)
	if err != nil {
		return err
	}
	if err := s.client.Put(ctx, key, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes++
	s.local.Add(key, value)
	s.mu.Unlock()
	return nil
}

func (s *Storage[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.mu.Lock()
	s.writes++
	s.local.Remove(key)
	s.mu.Unlock()
	return nil
}

var _ storage.KVStorage[string] = (*Storage[string])(nil)
