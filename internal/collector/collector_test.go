package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"ghostfetch/internal/shared/errs"
)

func echoLoader(fail map[string]bool) func(context.Context, string) (Item, error) {
	return func(_ context.Context, link string) (Item, error) {
		if fail[link] {
			return Item{}, errs.New(errs.Upstream, "download ", link)
		}
		return Item{Meta: ImageMeta{ID: link, URL: link}, Data: ImageData(link)}, nil
	}
}

func TestURLStream_SinglePass(t *testing.T) {
	s := NewURLStream([]string{"a", "b", "c"}, echoLoader(nil))
	assert.Equal(t, 3, s.Len())

	var got []string
	for {
		task, ok := s.Next()
		if !ok {
			break
		}
		assert.Equal(t, 3-len(got)-1, s.Len())
		item, err := task(context.Background())
		require.NoError(t, err)
		got = append(got, item.Meta.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	_, ok := s.Next()
	assert.False(t, ok)
	_, ok = s.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Remaining())
}

func TestURLStream_TasksAreLazy(t *testing.T) {
	var loads int32
	s := NewURLStream([]string{"a", "b"}, func(_ context.Context, link string) (Item, error) {
		atomic.AddInt32(&loads, 1)
		return Item{}, nil
	})

	first, ok := s.Next()
	require.True(t, ok)
	_, ok = s.Next()
	require.True(t, ok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&loads))

	_, _ = first(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestURLStream_Remaining(t *testing.T) {
	s := NewURLStream([]string{"a", "b", "c"}, echoLoader(nil))
	_, _ = s.Next()
	rest := s.Remaining()
	assert.Equal(t, []string{"b", "c"}, rest)

	rest[0] = "mutated"
	assert.Equal(t, []string{"b", "c"}, s.Remaining())
}

func TestEmpty(t *testing.T) {
	s := Empty()
	assert.Equal(t, 0, s.Len())
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestCollect_FailingItemDoesNotStopSiblings(t *testing.T) {
	s := NewURLStream([]string{"one", "two", "three"}, echoLoader(map[string]bool{"two": true}))

	results, err := Collect(context.Background(), s, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].Index)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, ImageData("one"), results[0].Item.Data)

	assert.Equal(t, 1, results[1].Index)
	assert.True(t, errs.IsKind(results[1].Err, errs.Upstream))

	assert.Equal(t, 2, results[2].Index)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, ImageData("three"), results[2].Item.Data)

	combined := Errors(results)
	require.Error(t, combined)
	assert.Len(t, multierr.Errors(combined), 1)
}

func TestDrain_BoundsConcurrency(t *testing.T) {
	const limit = 3
	var running, peak int32
	links := make([]string, 12)
	for i := range links {
		links[i] = string(rune('a' + i))
	}
	s := NewURLStream(links, func(context.Context, string) (Item, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return Item{}, nil
	})

	var calls int32
	err := Drain(context.Background(), s, limit, func(int, Item, error) {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(len(links)), atomic.LoadInt32(&calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
}

func TestDrain_StopsOfferingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewURLStream([]string{"a", "b", "c", "d"}, echoLoader(nil))

	err := Drain(ctx, s, 1, func(index int, _ Item, _ error) {
		if index == 0 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Greater(t, s.Len(), 0)
}
