// ============================================================================
// Arbiter Monitor - In-Process Performance Accounting
// ============================================================================
//
// Package: internal/monitor
// File: monitor.go
// Purpose: Track per-operation latency and outcome counts for the engine's
// own diagnostics. Separate from the Prometheus exporter: this state is
// queryable in-process and resettable.
//
// Concurrency:
//   - sync.Mutex guards the per-operation table; Measure returns a finish
//     closure so callers bracket work without holding the lock
//
// ============================================================================

package monitor

import (
	"sync"
	"time"
)

// OperationStats accumulates outcomes for one named operation.
type OperationStats struct {
	Count         int64         `json:"count"`
	Successes     int64         `json:"successes"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"-"`
	MinDuration   time.Duration `json:"-"`
	MaxDuration   time.Duration `json:"-"`
}

// AvgDuration returns the mean duration across recorded calls.
func (s OperationStats) AvgDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// SuccessRate returns the fraction of calls that succeeded, in [0, 1].
func (s OperationStats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Count)
}

// PerformanceMonitor aggregates operation timings. Safe for concurrent use.
type PerformanceMonitor struct {
	mu    sync.Mutex
	ops   map[string]*OperationStats
	since time.Time
}

// NewPerformanceMonitor creates an empty monitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		ops:   make(map[string]*OperationStats),
		since: time.Now(),
	}
}

// Measure starts timing one call of the named operation. The returned
// finish function records the elapsed time and outcome; call it exactly
// once, typically via defer.
func (m *PerformanceMonitor) Measure(operation string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		m.Record(operation, time.Since(start), success)
	}
}

// Record adds one observation for the named operation.
func (m *PerformanceMonitor) Record(operation string, d time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.ops[operation]
	if !ok {
		stats = &OperationStats{MinDuration: d}
		m.ops[operation] = stats
	}

	stats.Count++
	if success {
		stats.Successes++
	} else {
		stats.Errors++
	}
	stats.TotalDuration += d
	if d < stats.MinDuration {
		stats.MinDuration = d
	}
	if d > stats.MaxDuration {
		stats.MaxDuration = d
	}
}

// Stats returns a copy of the accumulated stats for one operation. The
// second return is false when the operation was never recorded.
func (m *PerformanceMonitor) Stats(operation string) (OperationStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.ops[operation]
	if !ok {
		return OperationStats{}, false
	}
	return *stats, true
}

// Snapshot returns a copy of all accumulated per-operation stats.
func (m *PerformanceMonitor) Snapshot() map[string]OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]OperationStats, len(m.ops))
	for name, stats := range m.ops {
		out[name] = *stats
	}
	return out
}

// Uptime reports how long the monitor has been collecting since creation
// or the last Reset.
func (m *PerformanceMonitor) Uptime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.since)
}

// Reset discards all accumulated stats and restarts the collection clock.
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ops = make(map[string]*OperationStats)
	m.since = time.Now()
}
