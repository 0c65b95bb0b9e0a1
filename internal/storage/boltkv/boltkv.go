// Package boltkv is a durable KVStorage backed by a single bbolt file.
package boltkv

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/storage"
)

const bucketName = "ghostfetch"

// Storage keeps JSON-encoded values in one bucket. ttl is ignored.
type Storage[V any] struct {
	db *bolt.DB
}

func Open[V any](path string) (*Storage[V], error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.New(errs.Storage, "open bolt database ", path).Base(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errs.New(errs.Storage, "create bucket ", bucketName).Base(err)
	}
	return &Storage[V]{db: db}, nil
}

func (s *Storage[V]) Get(_ context.Context, key string) (V, bool, error) {
	var (
		zero V
		data []byte
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		// 值只在事务内有效，需要拷贝
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return zero, false, errs.New(errs.Storage, "read ", key).Base(err)
	}
	if data == nil {
		return zero, false, nil
	}
	v, err := storage.Decode[V](data)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (s *Storage[V]) Set(_ context.Context, key string, value V, _ time.Duration) error {
	data, err := storage.Encode(value)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
	if err != nil {
		return errs.New(errs.Storage, "write ", key).Base(err)
	}
	return nil
}

func (s *Storage[V]) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
	if err != nil {
		return errs.New(errs.Storage, "delete ", key).Base(err)
	}
	return nil
}

func (s *Storage[V]) Close() error {
	return s.db.Close()
}

var _ storage.KVStorage[string] = (*Storage[string])(nil)
