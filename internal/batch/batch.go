// ============================================================================
// Arbiter Batch Processor - Bounded Concurrent Fan-Out
// ============================================================================
//
// Package: internal/batch
// File: batch.go
// Purpose: Run many independent items concurrently with a bounded worker
// count and per-item timeout, isolating per-item failures.
//
// Execution Model:
//   ┌─────────────┐
//   │  Process()  │ --acquire--> semaphore.Weighted(limit)
//   └─────────────┘
//         │ one goroutine per item, at most `limit` running
//         ▼
//   item goroutine: context.WithTimeout(perItemTimeout) -> fn(ctx, item)
//         │
//         ▼ writes results[i] / errors under mu
//
// Invariants:
//   - total = len(items); successful + failed = total
//   - results has len(items) entries, index-aligned with the input; the
//     zero value marks a failed index
//   - a per-item fault never aborts sibling items
//   - cancelling the batch context stops pending/running items but keeps
//     already-completed results
//
// ============================================================================

package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrEmptyBatch rejects a batch before any work begins.
	ErrEmptyBatch = errors.New("batch: cannot process empty batch")
	// ErrItemTimeout marks an item that exceeded its per-item deadline.
	ErrItemTimeout = errors.New("batch: item processing timed out")
)

// Default limits.
const (
	DefaultConcurrency = 4
	DefaultItemTimeout = 30 * time.Second
)

// ItemError records one failed item.
type ItemError struct {
	Index int    `json:"index"`
	Item  string `json:"item"`
	Err   string `json:"error"`
}

// Result aggregates a batch run. Immutable after Process returns.
type Result[R any] struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	// Results is index-aligned with the input items; failed indices hold
	// the zero value.
	Results  []R           `json:"results"`
	Errors   []ItemError   `json:"errors,omitempty"`
	Duration time.Duration `json:"-"`
}

// Config tunes a batch run.
type Config struct {
	// Concurrency bounds simultaneously processed items;
	// DefaultConcurrency when zero.
	Concurrency int
	// ItemTimeout bounds each item; DefaultItemTimeout when zero.
	ItemTimeout time.Duration
}

// Process fans items out to fn under the concurrency bound.
//
// Each item runs with its own deadline-carrying context; a processor
// error or timeout is recorded at that item's index and never aborts
// siblings. An empty items slice fails with ErrEmptyBatch before any work
// starts.
func Process[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), cfg Config) (*Result[R], error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	itemTimeout := cfg.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = DefaultItemTimeout
	}

	start := time.Now()
	sem := semaphore.NewWeighted(int64(concurrency))

	res := &Result[R]{
		Total:   len(items),
		Results: make([]R, len(items)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch cancelled: record the remaining items as failed and
			// keep what already completed.
			mu.Lock()
			res.Failed++
			res.Errors = append(res.Errors, ItemError{
				Index: i,
				Item:  fmt.Sprintf("%v", item),
				Err:   err.Error(),
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer sem.Release(1)

			value, err := runItem(ctx, item, fn, itemTimeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, ItemError{
					Index: i,
					Item:  fmt.Sprintf("%v", item),
					Err:   err.Error(),
				})
				return
			}
			res.Successful++
			res.Results[i] = value
		}(i, item)
	}

	wg.Wait()
	res.Duration = time.Since(start)
	return res, nil
}

// runItem executes fn for one item under its own deadline, converting a
// panic or a blown deadline into the item's error.
func runItem[T, R any](ctx context.Context, item T, fn func(ctx context.Context, item T) (R, error), timeout time.Duration) (R, error) {
	var zero R

	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value R
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("processor panicked: %v", rec)}
			}
		}()
		v, err := fn(itemCtx, item)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-itemCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrItemTimeout, timeout)
	}
}
