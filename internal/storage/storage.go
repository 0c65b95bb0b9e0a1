// Package storage provides key-value backends used to record processed albums.
package storage

import (
	"context"
	"time"
)

// KVStorage is a string-keyed store. A missing key is reported through the bool,
// never through the error.
type KVStorage[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	// Set overwrites any existing entry. ttl 0 means no expiry; backends may ignore it.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
