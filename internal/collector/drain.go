package collector

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task, keyed by its offer index.
type Result struct {
	Index int
	Item  Item
	Err   error
}

// Drain pulls every task from stream in offer order and runs at most concurrency of them
// at once. fn is called once per task from the worker goroutine; calls may overlap.
// A failing item never cancels its siblings. Drain stops offering new tasks once ctx is done.
func Drain(ctx context.Context, stream ImageStream, concurrency int, fn func(index int, item Item, err error)) error {
	if concurrency < 1 {
		concurrency = 1
	}
	// 不使用 errgroup.WithContext: 单个条目失败不能取消其他条目
	var g errgroup.Group
	g.SetLimit(concurrency)

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		task, ok := stream.Next()
		if !ok {
			break
		}
		g.Go(func() error {
			item, err := task(ctx)
			fn(index, item, err)
			return nil
		})
	}
	return g.Wait()
}

// Collect drains stream and returns the results ordered by offer index.
// After a cancellation only the tasks that were started are present.
func Collect(ctx context.Context, stream ImageStream, concurrency int) ([]Result, error) {
	var (
		mu      sync.Mutex
		results = make([]Result, 0, stream.Len())
	)
	err := Drain(ctx, stream, concurrency, func(index int, item Item, err error) {
		mu.Lock()
		results = append(results, Result{Index: index, Item: item, Err: err})
		mu.Unlock()
	})
	slices.SortFunc(results, func(a, b Result) int { return a.Index - b.Index })
	return results, err
}

// Errors combines the item errors of results, nil when every item succeeded.
func Errors(results []Result) error {
	var err error
	for _, r := range results {
		err = multierr.Append(err, r.Err)
	}
	return err
}
