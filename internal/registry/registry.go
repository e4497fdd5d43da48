// ============================================================================
// Arbiter Registry - Priority/Fallback Dispatch
// ============================================================================
//
// Package: internal/registry
// File: registry.go
// Purpose: Own the set of registered decision procedures and dispatch
// solve calls across them in priority order with fallback.
//
// Dispatch Algorithm:
//   1. Collect capable procedures (CanHandle true) in descending priority
//   2. Call Decide on each in turn
//   3. Return immediately on the first SAT/UNSAT result
//   4. With fallback disabled, stop after the first attempt
//   5. Exhausted without a definitive answer: return the last result seen
//
// Concurrency:
//   - sync.RWMutex: register/unregister take the write lock; solve and
//     findCapable snapshot the membership under the read lock, so readers
//     proceed concurrently and a solve observes the set at call start.
//
// Error Handling:
//   - ErrDuplicateProcedure on name collision at registration
//   - ErrProcedureNotFound on unregistering an unknown name
//   - A panicking procedure is caught at the registry boundary and
//     reported as that procedure's unknown result, never propagated
//
// ============================================================================

package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arbiterlabs/arbiter/pkg/procedure"
)

var (
	// ErrDuplicateProcedure reports a naming conflict at registration.
	ErrDuplicateProcedure = errors.New("procedure already registered")
	// ErrProcedureNotFound reports an unregister or lookup by unknown name.
	ErrProcedureNotFound = errors.New("procedure not found")
)

// DefaultTimeout bounds a single decide attempt when the caller does not
// supply a deadline.
const DefaultTimeout = 5 * time.Second

// Registry exclusively owns the registered procedures. External code must
// not retain references used for mutation.
type Registry struct {
	mu         sync.RWMutex
	procedures []procedure.Procedure            // sorted descending by priority
	byName     map[string]procedure.Procedure
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]procedure.Procedure),
	}
}

// Register adds a procedure and re-sorts the dispatch order. Registration
// of a duplicate name fails and leaves the registry unchanged.
func (r *Registry) Register(p procedure.Procedure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProcedure, p.Name())
	}

	r.byName[p.Name()] = p
	r.procedures = append(r.procedures, p)
	// Stable: equal priorities keep insertion order.
	sort.SliceStable(r.procedures, func(i, j int) bool {
		return r.procedures[i].Priority() > r.procedures[j].Priority()
	})
	return nil
}

// Unregister removes a procedure by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; !exists {
		return fmt.Errorf("%w: %q", ErrProcedureNotFound, name)
	}

	delete(r.byName, name)
	for i, p := range r.procedures {
		if p.Name() == name {
			r.procedures = append(r.procedures[:i], r.procedures[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a procedure by name.
func (r *Registry) Get(name string) (procedure.Procedure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.byName[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrProcedureNotFound, name)
	}
	return p, nil
}

// List returns the registered procedure names in priority order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.procedures))
	for _, p := range r.procedures {
		names = append(names, p.Name())
	}
	return names
}

// FindCapable returns every procedure whose CanHandle accepts the
// problem, in descending priority order.
func (r *Registry) FindCapable(problem string, hint procedure.ProblemType) []procedure.Procedure {
	snapshot := r.snapshot()

	capable := make([]procedure.Procedure, 0, len(snapshot))
	for _, p := range snapshot {
		if p.CanHandle(problem, hint) {
			capable = append(capable, p)
		}
	}
	return capable
}

// SolveOptions tunes a single dispatch.
type SolveOptions struct {
	// Hint biases capability checks; TypeUnknown means no hint.
	Hint procedure.ProblemType
	// Timeout bounds each decide attempt; DefaultTimeout when zero.
	Timeout time.Duration
	// NoFallback stops dispatch after the first attempt regardless of
	// outcome.
	NoFallback bool
}

// Solve dispatches the problem across capable procedures.
//
// Returns the first definitive (SAT/UNSAT) result in priority order. When
// every attempt is inconclusive the last result is returned; with no
// capable procedure a synthetic unknown result carries the diagnostic
// metadata {"error": "no_capable_procedure"}.
func (r *Registry) Solve(ctx context.Context, problem string, opts SolveOptions) procedure.SolverResult {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	capable := r.FindCapable(problem, opts.Hint)
	if len(capable) == 0 {
		return procedure.SolverResult{
			Satisfiable: procedure.Unknown,
			Explanation: "no capable decision procedure found for this problem",
			SolverName:  "registry",
			Metadata:    map[string]string{"error": "no_capable_procedure"},
		}
	}

	var last procedure.SolverResult
	var attempted bool
	for _, p := range capable {
		result := r.decide(ctx, p, problem, timeout)
		if result.Definitive() {
			return result
		}
		last = result
		attempted = true

		if opts.NoFallback {
			break
		}
	}

	if !attempted {
		return procedure.SolverResult{
			Satisfiable: procedure.Unknown,
			Explanation: "all procedures returned unknown or failed",
			SolverName:  "registry",
			Metadata:    map[string]string{"error": "all_failed"},
		}
	}
	return last
}

// decide runs a single attempt with a deadline, catching panics at the
// registry boundary so a faulty procedure cannot take down the dispatch.
func (r *Registry) decide(ctx context.Context, p procedure.Procedure, problem string, timeout time.Duration) (result procedure.SolverResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = procedure.SolverResult{
				Satisfiable: procedure.Unknown,
				Explanation: fmt.Sprintf("procedure %q failed internally", p.Name()),
				SolverName:  p.Name(),
				Metadata:    map[string]string{"error": fmt.Sprintf("panic: %v", rec)},
			}
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Decide(attemptCtx, problem)
}

// snapshot copies the current dispatch order under the read lock.
func (r *Registry) snapshot() []procedure.Procedure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]procedure.Procedure, len(r.procedures))
	copy(out, r.procedures)
	return out
}
