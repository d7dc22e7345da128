// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

// Package metrics exposes Prometheus instrumentation for Shelfmates.
//
// Collectors are registered with promauto on the default registry and
// served by the /metrics endpoint. Callers use the Record* helpers rather
// than touching collectors directly so label sets stay consistent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmates_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfmates_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelfmates_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Similarity batch metrics
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmates_batch_runs_total",
			Help: "Total number of similarity batch runs by outcome",
		},
		[]string{"status"}, // completed, failed, already_running
	)

	BatchStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfmates_batch_duration_seconds",
			Help:    "Duration of similarity batch stages in seconds",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60, 300, 900, 1800},
		},
		[]string{"stage"}, // load, similarity, selection, persist, total
	)

	BatchReadersUpdated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelfmates_batch_readers_updated",
			Help: "Readers whose neighbor set was replaced by the last completed batch",
		},
	)

	BatchEdgesEmitted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelfmates_batch_edges_emitted",
			Help: "Similarity edges produced by the last completed batch",
		},
	)

	BatchRecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfmates_batch_records_skipped_total",
			Help: "Malformed rating records skipped while loading batches",
		},
	)

	// Recommendation metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmates_recommendation_requests_total",
			Help: "Total number of recommendation requests by result status",
		},
		[]string{"status"}, // ok, insufficient_data, error
	)

	RecommendationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfmates_recommendation_latency_seconds",
			Help:    "Time to score and explain a recommendation list",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Cache metrics
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfmates_cache_operations_total",
			Help: "Recommendation cache lookups by backend and result",
		},
		[]string{"backend", "result"}, // result: hit, miss, error
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records the duration and outcome of a DuckDB query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an HTTP request. path is the chi route pattern,
// not the raw URL, to keep cardinality bounded.
func RecordAPIRequest(method, path, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBatchRun records the terminal status of a batch run. Gauges are only
// updated for completed runs so a failure leaves the last good values visible.
func RecordBatchRun(status string, readersUpdated, edgesEmitted int, duration time.Duration) {
	BatchRunsTotal.WithLabelValues(status).Inc()
	if status != "completed" {
		return
	}
	BatchReadersUpdated.Set(float64(readersUpdated))
	BatchEdgesEmitted.Set(float64(edgesEmitted))
	BatchStageDuration.WithLabelValues("total").Observe(duration.Seconds())
}

// RecordBatchStage records the duration of one batch stage.
func RecordBatchStage(stage string, duration time.Duration) {
	BatchStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSkippedRecords adds n malformed records to the skip counter.
func RecordSkippedRecords(n int) {
	if n > 0 {
		BatchRecordsSkipped.Add(float64(n))
	}
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(status string, duration time.Duration) {
	RecommendationRequests.WithLabelValues(status).Inc()
	RecommendationLatency.Observe(duration.Seconds())
}

// RecordCacheResult records a cache lookup.
func RecordCacheResult(backend, result string) {
	CacheOperations.WithLabelValues(backend, result).Inc()
}
