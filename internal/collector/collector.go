// Package collector defines album sources and the lazy stream of items they produce.
package collector

import (
	"context"
	"sync"
)

// AlbumMeta describes one album page.
type AlbumMeta struct {
	Link        string
	Name        string
	Class       *string
	Description *string
	Authors     []string
	// Tags 是 (namespace, value) 对
	Tags [][2]string
}

type ImageMeta struct {
	ID          string
	URL         string
	Description *string
}

type ImageData []byte

// Item is one downloaded resource.
type Item struct {
	Meta ImageMeta
	Data ImageData
}

// Task performs the download of a single item. Nothing touches the network before it runs.
type Task func(ctx context.Context) (Item, error)

// ImageStream yields tasks in page order. It is single-pass: once Next reports false
// it keeps reporting false.
type ImageStream interface {
	Next() (Task, bool)
	// Len is the number of tasks not yet taken.
	Len() int
}

// Collector turns a page reference into album metadata plus a lazy item stream.
type Collector interface {
	Name() string
	Fetch(ctx context.Context, path string) (AlbumMeta, ImageStream, error)
}

// URLStream is an ImageStream over a fixed list of links, each loaded by load when its task runs.
type URLStream struct {
	mu   sync.Mutex
	urls []string
	pos  int
	load func(ctx context.Context, link string) (Item, error)
}

func NewURLStream(urls []string, load func(ctx context.Context, link string) (Item, error)) *URLStream {
	return &URLStream{urls: urls, load: load}
}

func (s *URLStream) Next() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.urls) {
		return nil, false
	}
	link := s.urls[s.pos]
	s.pos++
	return func(ctx context.Context) (Item, error) {
		return s.load(ctx, link)
	}, true
}

func (s *URLStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls) - s.pos
}

// Remaining returns the links not yet taken, in order.
func (s *URLStream) Remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.urls)-s.pos)
	copy(out, s.urls[s.pos:])
	return out
}

// Empty is an exhausted stream.
func Empty() ImageStream {
	return NewURLStream(nil, nil)
}
