// ============================================================================
// Arbiter End-to-End Test Suite
// ============================================================================
//
// Package: test/integration
// File: pipeline_test.go
// Functionality: Full-pipeline tests through the public engine surface
//
// Test Objectives:
//   1. verify the validate -> classify -> dispatch cycle on real inputs
//   2. verify batch processing counters and index alignment at scale
//   3. verify the engine stays responsive under concurrent callers
//
// Notes:
//   - no network, no persistence: everything runs in-process
//   - timings are generous so CI load does not flake the suite
//
// ============================================================================

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arbiterlabs/arbiter/internal/engine"
	"github.com/arbiterlabs/arbiter/pkg/procedure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t testing.TB) *engine.Engine {
	t.Helper()
	e := engine.New(engine.Config{
		SolveTimeout:     2 * time.Second,
		BatchConcurrency: 8,
	})
	require.NoError(t, e.RegisterDefaults())
	return e
}

func TestEndToEndSolveCycle(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	// Satisfiable equality through the Presburger procedure.
	resp := e.Solve(ctx, "x  =   42", engine.SolveOptions{})
	require.True(t, resp.Success)
	assert.Equal(t, procedure.Sat, resp.Satisfiable)
	assert.Equal(t, map[string]int64{"x": 42}, resp.Model)

	// Unsatisfiable Diophantine instance via the gcd criterion.
	resp = e.Solve(ctx, "3x + 6y = 10", engine.SolveOptions{TypeHint: procedure.TypeDiophantine})
	require.True(t, resp.Success)
	assert.Equal(t, procedure.Unsat, resp.Satisfiable)

	// Dangerous input dies at the validation gate.
	resp = e.Solve(ctx, "eval(os.system('ls'))", engine.SolveOptions{})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.ValidationErrors)

	// Inconclusive dispatch is a well-formed non-success response.
	resp = e.Solve(ctx, "x + y < z", engine.SolveOptions{})
	assert.False(t, resp.Success)
	assert.Equal(t, procedure.Unknown, resp.Satisfiable)
	assert.Empty(t, resp.Error)
}

func TestEndToEndBatchAtScale(t *testing.T) {
	e := newEngine(t)

	const n = 200
	problems := make([]string, n)
	for i := range problems {
		if i%10 == 9 {
			problems[i] = "exec(payload)" // every tenth item is rejected
		} else {
			problems[i] = fmt.Sprintf("x = %d", i)
		}
	}

	start := time.Now()
	res, err := e.SolveBatch(context.Background(), problems, engine.SolveOptions{})
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Equal(t, n, res.Total)
	assert.Equal(t, n, res.Successful+res.Failed)
	assert.Equal(t, n/10, res.Failed)
	require.Len(t, res.Results, n)

	for i, r := range res.Results {
		if i%10 == 9 {
			assert.Nil(t, r, "rejected index %d holds the zero value", i)
			continue
		}
		require.NotNil(t, r, "index %d", i)
		assert.Equal(t, int64(i), r.Model["x"], "result aligns with its input index")
	}

	assert.Less(t, elapsed, 30*time.Second, "batch completes well under the per-item budget sum")
}

func TestEndToEndConcurrentCallers(t *testing.T) {
	e := newEngine(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				resp := e.Solve(context.Background(), fmt.Sprintf("k = %d", w*100+i), engine.SolveOptions{})
				assert.True(t, resp.Success)
			}
		}(w)
	}
	wg.Wait()

	stats, ok := e.Monitor().Stats("solve")
	require.True(t, ok)
	assert.Equal(t, int64(200), stats.Count)
	assert.Equal(t, int64(200), stats.Successes)
}
