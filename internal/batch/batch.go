// Package batch provides small concurrency helpers for fanning work
// out across LLM endpoints: partitioning, settle-all execution, and
// fastest-wins racing.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Partition splits items into at most n contiguous groups of near-equal
// size. Fewer groups are returned when there are fewer items than n.
func Partition[T any](items []T, n int) [][]T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	if n > len(items) {
		n = len(items)
	}

	groups := make([][]T, 0, n)
	size := len(items) / n
	extra := len(items) % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		groups = append(groups, items[start:end])
		start = end
	}
	return groups
}

// Result holds the outcome of one task in a settle-all run
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// SettleAll runs one task per input index and waits for every task to
// finish, succeed or fail. Unlike errgroup's default behavior, one
// failure does not cancel the siblings: a batch that loses an endpoint
// should still collect the others' results.
func SettleAll[T any](ctx context.Context, n int, task func(ctx context.Context, i int) (T, error)) []Result[T] {
	results := make([]Result[T], n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			value, err := task(ctx, i)
			results[i] = Result[T]{Index: i, Value: value, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Split separates settled results into successes and failures,
// preserving index order.
func Split[T any](results []Result[T]) (succeeded []Result[T], failed []Result[T]) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		} else {
			succeeded = append(succeeded, r)
		}
	}
	return succeeded, failed
}

// First runs all tasks concurrently and returns the first success,
// cancelling the rest. If every task fails, the last error is returned.
func First[T any](ctx context.Context, n int, task func(ctx context.Context, i int) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, n)
	for i := 0; i < n; i++ {
		go func() {
			value, err := task(ctx, i)
			ch <- outcome{value, err}
		}()
	}

	var zero T
	var lastErr error
	for i := 0; i < n; i++ {
		select {
		case o := <-ch:
			if o.err == nil {
				return o.value, nil
			}
			lastErr = o.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
