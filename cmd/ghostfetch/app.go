package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ghostfetch/internal/collector"
	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/logger"
	"ghostfetch/internal/shared/types"
	"ghostfetch/internal/storage"
	"ghostfetch/internal/storage/boltkv"
	"ghostfetch/internal/storage/remote"
	"ghostfetch/internal/transport"
)

// AlbumRecord 记录一次成功处理的图集，作为去重依据。
type AlbumRecord struct {
	Name   string    `json:"name"`
	Link   string    `json:"link"`
	Items  int       `json:"items"`
	Failed int       `json:"failed"`
	At     time.Time `json:"at"`
}

type fetchOptions struct {
	Concurrency int
	OutDir      string
	Force       bool
}

// newStorage selects the processed-album backend from [fetch] storage.
// The returned close func is never nil.
func newStorage(cfg *types.Config) (storage.KVStorage[AlbumRecord], func() error, error) {
	noop := func() error { return nil }
	switch cfg.Fetch.Storage {
	case "", "lru":
		s, err := storage.NewLRU[AlbumRecord](cfg.Fetch.LRUCapacity)
		return s, noop, err
	case "memory":
		return storage.NewMem[AlbumRecord](), noop, nil
	case "bolt":
		s, err := boltkv.Open[AlbumRecord](cfg.Fetch.BoltPath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "remote":
		proxied, err := transport.NewProxiedClientFromConfig(cfg.Proxy)
		if err != nil {
			return nil, noop, err
		}
		s, err := remote.NewFromConfig[AlbumRecord](cfg.WorkerKV, proxied)
		return s, noop, err
	default:
		return nil, noop, errs.New(errs.Configuration, "unknown storage backend: ", cfg.Fetch.Storage)
	}
}

func recordKey(c collector.Collector, albumPath string) string {
	return c.Name() + ":" + strings.Trim(albumPath, "/")
}

// process fetches one album, drains its stream and records the outcome.
// A skipped album (already recorded) returns the stored record and false.
func process(ctx context.Context, c collector.Collector, store storage.KVStorage[AlbumRecord], albumPath string, opts fetchOptions) (AlbumRecord, bool, error) {
	l := logger.WithComponent("CLI")
	key := recordKey(c, albumPath)

	if !opts.Force {
		rec, ok, err := store.Get(ctx, key)
		if err != nil {
			return AlbumRecord{}, false, err
		}
		if ok {
			l.Info().Str("key", key).Str("name", rec.Name).Msg("Album already processed, skipping")
			return rec, false, nil
		}
	}

	meta, stream, err := c.Fetch(ctx, albumPath)
	if err != nil {
		return AlbumRecord{}, false, err
	}

	var albumDir string
	if opts.OutDir != "" {
		albumDir = filepath.Join(opts.OutDir, sanitize(strings.Trim(albumPath, "/")))
		if err := os.MkdirAll(albumDir, 0o755); err != nil {
			return AlbumRecord{}, false, errs.New(errs.Storage, "create ", albumDir).Base(err)
		}
	}

	var (
		mu     sync.Mutex
		failed int
		total  int
	)
	err = collector.Drain(ctx, stream, opts.Concurrency, func(index int, item collector.Item, err error) {
		if err == nil && albumDir != "" {
			err = writeItem(albumDir, index, item)
		}
		mu.Lock()
		defer mu.Unlock()
		total++
		if err != nil {
			failed++
			l.Warn().Err(err).Int("index", index).Msg("Item failed")
		}
	})
	if err != nil {
		return AlbumRecord{}, false, err
	}

	rec := AlbumRecord{Name: meta.Name, Link: meta.Link, Items: total, Failed: failed, At: time.Now().UTC()}
	// 只有全部成功才记录，失败的图集下次仍会重试
	if failed == 0 {
		if err := store.Set(ctx, key, rec, 0); err != nil {
			return rec, true, err
		}
	}
	l.Info().Str("name", rec.Name).Int("items", rec.Items).Int("failed", rec.Failed).Msg("Album processed")
	return rec, true, nil
}

func writeItem(dir string, index int, item collector.Item) error {
	name := fmt.Sprintf("%04d", index+1)
	if u, err := url.Parse(item.Meta.URL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			name += ext
		}
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, item.Data, 0o644); err != nil {
		return errs.New(errs.Storage, "write ", target).Base(err)
	}
	return nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
