// ============================================================================
// Arbiter Metrics - Prometheus Exporter
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose solve pipeline metrics for Prometheus
//
// Metric Classes:
//
//   1. Verdict counters (Counter, monotonic):
//      - arbiter_solves_total{verdict}: solve attempts by outcome
//        (sat / unsat / unknown)
//      - arbiter_validation_rejections_total: inputs rejected upstream
//      - arbiter_batch_items_total{outcome}: batch items by outcome
//
//   2. Latency (Histogram):
//      - arbiter_solve_duration_seconds: end-to-end solve latency
//        * Buckets: prometheus.DefBuckets (5ms .. 10s)
//
//   3. State (Gauge):
//      - arbiter_registered_procedures: procedures currently registered
//
// Example Queries:
//
//   # definitive-answer rate
//   sum(rate(arbiter_solves_total{verdict=~"sat|unsat"}[5m]))
//     / sum(rate(arbiter_solves_total[5m]))
//
//   # 95th percentile solve latency
//   histogram_quantile(0.95, arbiter_solve_duration_seconds_bucket)
//
// HTTP Endpoint:
//   Exposed at /metrics via promhttp, scraped by Prometheus.
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the exporter's Prometheus instruments.
type Collector struct {
	solves               *prometheus.CounterVec
	validationRejections prometheus.Counter
	batchItems           *prometheus.CounterVec

	solveDuration prometheus.Histogram

	registeredProcedures prometheus.Gauge
}

// NewCollector creates the instruments and registers them with the
// default registerer.
func NewCollector() *Collector {
	c := &Collector{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbiter_solves_total",
			Help: "Total solve attempts by verdict (sat, unsat, unknown)",
		}, []string{"verdict"}),
		validationRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_validation_rejections_total",
			Help: "Total inputs rejected by validation before dispatch",
		}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbiter_batch_items_total",
			Help: "Total batch items processed by outcome (success, failure)",
		}, []string{"outcome"}),
		solveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbiter_solve_duration_seconds",
			Help:    "End-to-end solve latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		registeredProcedures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbiter_registered_procedures",
			Help: "Number of decision procedures currently registered",
		}),
	}

	prometheus.MustRegister(c.solves)
	prometheus.MustRegister(c.validationRejections)
	prometheus.MustRegister(c.batchItems)
	prometheus.MustRegister(c.solveDuration)
	prometheus.MustRegister(c.registeredProcedures)

	return c
}

// RecordSolve records one solve attempt with its verdict label and
// latency.
func (c *Collector) RecordSolve(verdict string, seconds float64) {
	c.solves.WithLabelValues(verdict).Inc()
	c.solveDuration.Observe(seconds)
}

// RecordValidationRejection records an input rejected before dispatch.
func (c *Collector) RecordValidationRejection() {
	c.validationRejections.Inc()
}

// RecordBatchItem records one processed batch item.
func (c *Collector) RecordBatchItem(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.batchItems.WithLabelValues(outcome).Inc()
}

// SetRegisteredProcedures updates the registered-procedures gauge.
func (c *Collector) SetRegisteredProcedures(n int) {
	c.registeredProcedures.Set(float64(n))
}

// StartServer starts the Prometheus metrics HTTP server.
//
// Parameters:
//   - port: HTTP server port
//
// Returns:
//   - error: server startup or serve failure
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
