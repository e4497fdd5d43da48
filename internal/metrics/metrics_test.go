package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	// Reset Prometheus registry to avoid duplicate registration
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector := NewCollector()

	assert.NotNil(t, collector, "NewCollector should return a non-nil collector")
	assert.NotNil(t, collector.solves, "solves counter vec should be initialized")
	assert.NotNil(t, collector.validationRejections, "validationRejections counter should be initialized")
	assert.NotNil(t, collector.batchItems, "batchItems counter vec should be initialized")
	assert.NotNil(t, collector.solveDuration, "solveDuration histogram should be initialized")
	assert.NotNil(t, collector.registeredProcedures, "registeredProcedures gauge should be initialized")
}

func TestRecordSolve(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	verdicts := []string{"sat", "unsat", "unknown"}
	latencies := []float64{0.001, 0.01, 0.1, 1.0, 5.0}

	for i, verdict := range verdicts {
		assert.NotPanics(t, func() {
			collector.RecordSolve(verdict, latencies[i])
		}, "RecordSolve should not panic for verdict %q", verdict)
	}
}

func TestRecordValidationRejection(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordValidationRejection()
	}, "RecordValidationRejection should not panic")

	for i := 0; i < 5; i++ {
		collector.RecordValidationRejection()
	}
}

func TestRecordBatchItem(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordBatchItem(true)
		collector.RecordBatchItem(false)
	}, "RecordBatchItem should not panic")
}

func TestSetRegisteredProcedures(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	counts := []int{0, 1, 3, 10}
	for _, n := range counts {
		assert.NotPanics(t, func() {
			collector.SetRegisteredProcedures(n)
		}, "SetRegisteredProcedures should not panic with count %d", n)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	// Prometheus instruments must tolerate concurrent updates.
	done := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		go func() {
			collector.RecordSolve("sat", 0.1)
			collector.RecordBatchItem(true)
			collector.SetRegisteredProcedures(3)
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}

func TestCollectorIsolation(t *testing.T) {
	// Test multiple collector instances work independently
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector1 := NewCollector()
	require.NotNil(t, collector1)

	// Second collector will panic due to duplicate registration
	// This is expected: a process should have only one collector
	assert.Panics(t, func() {
		NewCollector()
	}, "Creating a second collector should panic due to duplicate registration")
}

func TestMetricOperationSequence(t *testing.T) {
	// Test a typical solve sequence
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		// 1. Procedures registered at startup
		collector.SetRegisteredProcedures(3)

		// 2. One input rejected by validation
		collector.RecordValidationRejection()

		// 3. Two solves, one definitive and one inconclusive
		collector.RecordSolve("sat", 0.02)
		collector.RecordSolve("unknown", 0.5)

		// 4. A batch run with mixed outcomes
		collector.RecordBatchItem(true)
		collector.RecordBatchItem(false)
	}, "Complete solve lifecycle should not panic")
}

func TestZeroAndEdgeValues(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordSolve("unknown", 0.0) // zero latency
		collector.SetRegisteredProcedures(0)  // empty registry
	}, "Edge case values should not panic")
}
