package monitor

// ============================================================================
// Monitor Test File
// Purpose: Verify stat accumulation, reset semantics, and trace structure
// ============================================================================

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// PerformanceMonitor
// ============================================================================

func TestRecordAccumulates(t *testing.T) {
	m := NewPerformanceMonitor()

	m.Record("solve", 10*time.Millisecond, true)
	m.Record("solve", 30*time.Millisecond, true)
	m.Record("solve", 20*time.Millisecond, false)

	stats, ok := m.Stats("solve")
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(2), stats.Successes)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, 20*time.Millisecond, stats.AvgDuration())
	assert.Equal(t, 10*time.Millisecond, stats.MinDuration)
	assert.Equal(t, 30*time.Millisecond, stats.MaxDuration)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate(), 1e-9)
}

func TestStatsUnknownOperation(t *testing.T) {
	m := NewPerformanceMonitor()
	_, ok := m.Stats("never-recorded")
	assert.False(t, ok)
}

func TestMeasureBracketsWork(t *testing.T) {
	m := NewPerformanceMonitor()

	finish := m.Measure("classify")
	time.Sleep(5 * time.Millisecond)
	finish(true)

	stats, ok := m.Stats("classify")
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Count)
	assert.GreaterOrEqual(t, stats.TotalDuration, 5*time.Millisecond)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewPerformanceMonitor()
	m.Record("a", time.Millisecond, true)

	snap := m.Snapshot()
	require.Contains(t, snap, "a")

	// Mutating after the snapshot must not alter the copy.
	m.Record("a", time.Millisecond, true)
	assert.Equal(t, int64(1), snap["a"].Count)
}

func TestReset(t *testing.T) {
	m := NewPerformanceMonitor()
	m.Record("a", time.Millisecond, true)
	m.Record("b", time.Millisecond, false)

	m.Reset()

	assert.Empty(t, m.Snapshot())
	_, ok := m.Stats("a")
	assert.False(t, ok)
}

func TestRecordConcurrent(t *testing.T) {
	m := NewPerformanceMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record("solve", time.Microsecond, j%2 == 0)
			}
		}()
	}
	wg.Wait()

	stats, ok := m.Stats("solve")
	require.True(t, ok)
	assert.Equal(t, int64(800), stats.Count)
	assert.Equal(t, int64(400), stats.Successes)
}

// ============================================================================
// Tracer
// ============================================================================

func TestTraceSpanHierarchy(t *testing.T) {
	tr := NewTracer(0)

	root := tr.StartTrace("solve")
	child := tr.StartSpan(root, "validate")
	child.SetTag("outcome", "valid")
	child.LogEvent("input sanitized")
	child.Finish()
	root.Finish()

	spans := tr.Trace(root.TraceID)
	require.Len(t, spans, 2)

	assert.Equal(t, root.TraceID, child.TraceID, "child stays inside the parent trace")
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
	assert.Equal(t, "valid", child.Tags["outcome"])
	require.Len(t, child.Events, 1)
	assert.Equal(t, "input sanitized", child.Events[0].Message)
}

func TestTracesAreDistinct(t *testing.T) {
	tr := NewTracer(0)

	a := tr.StartTrace("solve")
	b := tr.StartTrace("solve")

	assert.NotEqual(t, a.TraceID, b.TraceID)
	assert.Len(t, tr.Trace(a.TraceID), 1)
	assert.Len(t, tr.Trace(b.TraceID), 1)
}

func TestSpanFinishIdempotent(t *testing.T) {
	tr := NewTracer(0)
	span := tr.StartTrace("solve")

	span.Finish()
	first := span.End
	time.Sleep(2 * time.Millisecond)
	span.Finish()

	assert.Equal(t, first, span.End, "second Finish keeps the first stamp")
	assert.GreaterOrEqual(t, span.Duration(), time.Duration(0))
}

func TestTraceHistoryEviction(t *testing.T) {
	tr := NewTracer(3)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, tr.StartTrace("solve").TraceID)
	}

	assert.Equal(t, 3, tr.Len())
	assert.Nil(t, tr.Trace(ids[0]), "oldest traces are evicted")
	assert.Nil(t, tr.Trace(ids[1]))
	assert.NotNil(t, tr.Trace(ids[4]))
}
