// ============================================================================
// Arbiter Sandbox - Guarded Execution
// ============================================================================
//
// Package: internal/sandbox
// File: sandbox.go
// Purpose: Wrap a single solve attempt with a hard wall-clock timeout and
// a best-effort memory ceiling, converting faults into errors instead of
// propagating crashes.
//
// Execution Model:
//   The computation runs on its own goroutine while the caller waits on
//   either its completion or the deadline. Each call owns its timer, so
//   overlapping sandboxed executions are independent. After the deadline
//   fires the goroutine is abandoned to finish on its own; the computation
//   receives a cancelled context and is expected to wind down.
//
// Memory Ceiling:
//   Best-effort only: a watchdog samples runtime.ReadMemStats and trips a
//   distinct memory fault when heap use crosses the configured ceiling.
//   A zero ceiling disables the watchdog; absence of enforcement is not a
//   failure.
//
// ============================================================================

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

var (
	// ErrTimeout reports that the computation exceeded the wall-clock
	// deadline.
	ErrTimeout = errors.New("sandbox: execution timed out")
	// ErrMemoryLimit reports that the heap ceiling was crossed while the
	// computation ran.
	ErrMemoryLimit = errors.New("sandbox: memory limit exceeded")
	// ErrPanic reports that the computation panicked.
	ErrPanic = errors.New("sandbox: execution panicked")
)

// DefaultTimeout is the hard wall-clock limit when none is configured.
const DefaultTimeout = 5 * time.Second

// watchdogInterval is how often the memory watchdog samples the heap.
const watchdogInterval = 50 * time.Millisecond

// Config tunes a Sandbox.
type Config struct {
	// Timeout is the hard wall-clock limit per execution; DefaultTimeout
	// when zero.
	Timeout time.Duration
	// MaxMemoryMB is the best-effort heap ceiling; zero disables the
	// watchdog.
	MaxMemoryMB int
}

// Sandbox executes computations under the configured limits. Safe for
// concurrent use; each call runs independently.
type Sandbox struct {
	cfg Config
}

// New creates a Sandbox.
func New(cfg Config) *Sandbox {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Sandbox{cfg: cfg}
}

// Run executes fn under the sandbox limits. On success the computation's
// value is returned unchanged. On a fault the returned error wraps
// ErrTimeout, ErrMemoryLimit, or ErrPanic; the zero value accompanies it.
//
// fn receives a context cancelled at the deadline and should treat it as
// its execution budget.
func Run[T any](ctx context.Context, sb *Sandbox, fn func(ctx context.Context) T) (T, error) {
	var zero T

	runCtx, cancel := context.WithTimeout(ctx, sb.cfg.Timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, rec)}
			}
		}()
		done <- outcome{value: fn(runCtx)}
	}()

	var memCh <-chan struct{}
	if sb.cfg.MaxMemoryMB > 0 {
		memCh = watchMemory(runCtx, uint64(sb.cfg.MaxMemoryMB)*1024*1024)
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-memCh:
		return zero, fmt.Errorf("%w: heap exceeded %d MB", ErrMemoryLimit, sb.cfg.MaxMemoryMB)
	case <-runCtx.Done():
		if ctx.Err() != nil {
			// The caller's context was cancelled, not our deadline.
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, sb.cfg.Timeout)
	}
}

// watchMemory closes the returned channel when heap use crosses the
// ceiling. The watchdog stops when ctx is done.
func watchMemory(ctx context.Context, limitBytes uint64) <-chan struct{} {
	tripped := make(chan struct{})
	go func() {
		ticker := time.NewTicker(watchdogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				if ms.HeapAlloc > limitBytes {
					close(tripped)
					return
				}
			}
		}
	}()
	return tripped
}
