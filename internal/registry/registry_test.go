package registry

// ============================================================================
// Registry Test File
// Purpose: Verify registration rules and priority/fallback dispatch
// ============================================================================

import (
	"context"
	"sync"
	"testing"

	"github.com/arbiterlabs/arbiter/internal/procedures"
	"github.com/arbiterlabs/arbiter/pkg/procedure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper: scripted fake procedure
// ============================================================================

// fakeProcedure answers with a fixed result and records decide calls.
type fakeProcedure struct {
	name     string
	priority int
	capable  bool
	result   procedure.SolverResult
	panics   bool

	mu    sync.Mutex
	calls int
}

func (f *fakeProcedure) Name() string                                { return f.name }
func (f *fakeProcedure) SupportedTypes() []procedure.ProblemType     { return nil }
func (f *fakeProcedure) CanHandle(string, procedure.ProblemType) bool { return f.capable }
func (f *fakeProcedure) Explain(res procedure.SolverResult) string   { return res.Explanation }
func (f *fakeProcedure) Priority() int                               { return f.priority }

func (f *fakeProcedure) Decide(ctx context.Context, problem string) procedure.SolverResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics {
		panic("scripted failure")
	}
	res := f.result
	res.SolverName = f.name
	return res
}

func (f *fakeProcedure) decideCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func unknownResult() procedure.SolverResult {
	return procedure.SolverResult{Satisfiable: procedure.Unknown, Explanation: "no idea"}
}

func satResult() procedure.SolverResult {
	return procedure.SolverResult{Satisfiable: procedure.Sat}
}

// ============================================================================
// Registration
// ============================================================================

func TestRegisterDuplicateName(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(&fakeProcedure{name: "a", capable: true}))
	err := r.Register(&fakeProcedure{name: "a"})
	require.ErrorIs(t, err, ErrDuplicateProcedure)

	// Failed registration leaves the set unchanged.
	assert.Equal(t, []string{"a"}, r.List())
}

func TestUnregister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&fakeProcedure{name: "a"}))

	require.NoError(t, r.Unregister("a"))
	assert.Empty(t, r.List())

	err := r.Unregister("missing")
	require.ErrorIs(t, err, ErrProcedureNotFound)
	assert.Empty(t, r.List())
}

func TestGet(t *testing.T) {
	r := New()
	p := &fakeProcedure{name: "a"}
	require.NoError(t, r.Register(p))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, procedure.Procedure(p), got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrProcedureNotFound)
}

func TestListPriorityOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&fakeProcedure{name: "low", priority: -10}))
	require.NoError(t, r.Register(&fakeProcedure{name: "high", priority: 10}))
	require.NoError(t, r.Register(&fakeProcedure{name: "mid-a", priority: 5}))
	require.NoError(t, r.Register(&fakeProcedure{name: "mid-b", priority: 5}))

	// Equal priorities keep insertion order (stable sort).
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, r.List())
}

// ============================================================================
// Dispatch
// ============================================================================

func TestSolveNoCapableProcedure(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&fakeProcedure{name: "a", capable: false}))

	res := r.Solve(context.Background(), "x = 1", SolveOptions{})
	assert.Equal(t, procedure.Unknown, res.Satisfiable)
	assert.Equal(t, "no_capable_procedure", res.Metadata["error"])
	assert.Equal(t, "registry", res.SolverName)
}

func TestSolveFirstDefinitiveWins(t *testing.T) {
	r := New()
	high := &fakeProcedure{name: "high", priority: 10, capable: true, result: unknownResult()}
	mid := &fakeProcedure{name: "mid", priority: 5, capable: true, result: satResult()}
	low := &fakeProcedure{name: "low", priority: -10, capable: true, result: satResult()}
	require.NoError(t, r.Register(low))
	require.NoError(t, r.Register(high))
	require.NoError(t, r.Register(mid))

	res := r.Solve(context.Background(), "x = 1", SolveOptions{})
	assert.Equal(t, procedure.Sat, res.Satisfiable)
	assert.Equal(t, "mid", res.SolverName)

	// The lower-priority procedure was never consulted.
	assert.Equal(t, 1, high.decideCalls())
	assert.Equal(t, 1, mid.decideCalls())
	assert.Equal(t, 0, low.decideCalls())
}

func TestSolveAllUnknownReturnsLast(t *testing.T) {
	r := New()
	first := &fakeProcedure{name: "first", priority: 10, capable: true, result: unknownResult()}
	second := &fakeProcedure{name: "second", priority: 5, capable: true, result: unknownResult()}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	res := r.Solve(context.Background(), "x = 1", SolveOptions{})
	assert.Equal(t, procedure.Unknown, res.Satisfiable)
	assert.Equal(t, "second", res.SolverName, "last inconclusive result is returned")
}

func TestSolveNoFallbackStopsAfterFirst(t *testing.T) {
	r := New()
	first := &fakeProcedure{name: "first", priority: 10, capable: true, result: unknownResult()}
	second := &fakeProcedure{name: "second", priority: 5, capable: true, result: satResult()}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	res := r.Solve(context.Background(), "x = 1", SolveOptions{NoFallback: true})
	assert.Equal(t, procedure.Unknown, res.Satisfiable)
	assert.Equal(t, 0, second.decideCalls())
}

func TestSolvePanicContained(t *testing.T) {
	r := New()
	bad := &fakeProcedure{name: "bad", priority: 10, capable: true, panics: true}
	good := &fakeProcedure{name: "good", priority: 5, capable: true, result: satResult()}
	require.NoError(t, r.Register(bad))
	require.NoError(t, r.Register(good))

	res := r.Solve(context.Background(), "x = 1", SolveOptions{})
	assert.Equal(t, procedure.Sat, res.Satisfiable, "dispatch falls through past the panicking procedure")
	assert.Equal(t, "good", res.SolverName)
}

func TestSolvePanicReportedWhenAlone(t *testing.T) {
	r := New()
	bad := &fakeProcedure{name: "bad", priority: 10, capable: true, panics: true}
	require.NoError(t, r.Register(bad))

	res := r.Solve(context.Background(), "x = 1", SolveOptions{})
	assert.Equal(t, procedure.Unknown, res.Satisfiable)
	assert.Equal(t, "bad", res.SolverName)
	assert.Contains(t, res.Metadata["error"], "panic")
}

// ============================================================================
// Built-in procedures end to end
// ============================================================================

func TestSolveBuiltins(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(procedures.NewPresburger()))
	require.NoError(t, r.Register(procedures.NewDiophantine()))

	res := r.Solve(context.Background(), "x = 42", SolveOptions{})
	require.Equal(t, procedure.Sat, res.Satisfiable)
	assert.Equal(t, "presburger", res.SolverName)
	assert.Equal(t, map[string]int64{"x": 42}, res.Model)

	res = r.Solve(context.Background(), "3x + 6y = 10", SolveOptions{Hint: procedure.TypeDiophantine})
	require.Equal(t, procedure.Unsat, res.Satisfiable)
	assert.Equal(t, "diophantine", res.SolverName)
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentSolveAndRegister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(procedures.NewPresburger()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res := r.Solve(context.Background(), "x = 7", SolveOptions{})
				assert.Equal(t, procedure.Sat, res.Satisfiable)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			name := "transient"
			if err := r.Register(&fakeProcedure{name: name, priority: -100, capable: true, result: unknownResult()}); err == nil {
				_ = r.Unregister(name)
			}
		}
	}()

	wg.Wait()
}
