// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Durable store query performance (DuckDB upserts)
// - Circuit breaker state transitions
// - Ingest client throughput and drop rates
// - Dispatcher flush cadence and fan-out volume
// - Subscriber session counts and rate limiting
// - Batch synchronizer runs and retry spool depth

var (
	// Durable Store Metrics
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
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	DBSpatialOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_spatial_operations_total",
			Help: "Total number of spatial operations (ST_* functions)",
		},
		[]string{"operation_type"}, // "point", "upsert"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests observed by a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current consecutive failure count for a circuit breaker",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Ingest Client Metrics
	IngestPositionsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_positions_accepted_total",
			Help: "Total number of position reports applied to the store",
		},
	)

	IngestPositionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_positions_dropped_total",
			Help: "Total number of position reports dropped, by reason",
		},
		[]string{"reason"}, // "missing_mmsi", "missing_coord", "out_of_range", "malformed"
	)

	IngestConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_connection_state",
			Help: "Upstream ingest connection state (0=disconnected, 1=connecting, 2=subscribed)",
		},
	)

	IngestReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_reconnects_total",
			Help: "Total number of upstream reconnect attempts",
		},
	)

	// Dispatcher Metrics
	DispatchTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_tick_duration_seconds",
			Help:    "Duration of one dispatcher flush tick",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	DispatchDirtyTiles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_dirty_tiles",
			Help:    "Number of distinct dirty tiles handled per flush tick",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	DispatchMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_messages_sent_total",
			Help: "Total number of tile-update messages sent to subscriber sessions",
		},
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of connected subscriber sessions",
		},
	)

	SessionSubscribedTiles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_subscribed_tiles",
			Help:    "Number of tiles a session is subscribed to at disconnect",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 1500},
		},
	)

	SessionRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_rate_limit_hits_total",
			Help: "Total number of inbound session messages rejected by the rate limiter",
		},
	)

	SessionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_errors_total",
			Help: "Total number of session-level errors",
		},
		[]string{"reason"},
	)

	// Batch Synchronizer Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batchsync_duration_seconds",
			Help:    "Duration of one batch synchronizer run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SyncRecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batchsync_records_processed_total",
			Help: "Total number of vessel records upserted by the batch synchronizer",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchsync_errors_total",
			Help: "Total number of failed batch synchronizer runs",
		},
		[]string{"error_type"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batchsync_last_success_timestamp",
			Help: "Unix timestamp of the last successful batch synchronizer run",
		},
	)

	SyncRetrySpoolDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batchsync_retry_spool_depth",
			Help: "Current number of batches waiting in the retry spool",
		},
	)

	// Generic Cache Metrics (shared by internal/cache consumers)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total cache evictions",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Current number of entries in a cache",
		},
		[]string{"cache_type"},
	)

	// Eventbus Metrics (optional NATS-backed dirty-tile bus)
	EventbusPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_messages_published_total",
			Help: "Total number of dirty-tile events published to the event bus",
		},
	)

	EventbusConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_messages_consumed_total",
			Help: "Total number of dirty-tile events consumed from the event bus",
		},
	)

	EventbusParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_parse_failed_total",
			Help: "Total number of event bus messages that failed to parse",
		},
	)

	// HTTP Surface Metrics (the small /ws, /healthz, /metrics surface, not a REST API)
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "commit", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a durable-store query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records one HTTP request against the /ws, /healthz, /metrics surface.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight HTTP request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCircuitBreakerResult records the outcome of one circuit-breaker-guarded call.
func RecordCircuitBreakerResult(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition records a circuit breaker moving between states.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordIngestAccepted records one position report successfully applied to the store.
func RecordIngestAccepted() {
	IngestPositionsAccepted.Inc()
}

// RecordIngestDropped records one position report rejected before reaching the store.
func RecordIngestDropped(reason string) {
	IngestPositionsDropped.WithLabelValues(reason).Inc()
}

// RecordDispatchTick records one dispatcher flush tick's duration and fan-out size.
func RecordDispatchTick(duration time.Duration, dirtyTiles, messagesSent int) {
	DispatchTickDuration.Observe(duration.Seconds())
	DispatchDirtyTiles.Observe(float64(dirtyTiles))
	DispatchMessagesSent.Add(float64(messagesSent))
}

// RecordSessionDisconnect records a session's final subscribed-tile count at disconnect.
func RecordSessionDisconnect(subscribedTiles int) {
	SessionSubscribedTiles.Observe(float64(subscribedTiles))
}

// RecordSyncOperation records one batch synchronizer run.
func RecordSyncOperation(duration time.Duration, recordsProcessed int, err error) {
	SyncDuration.Observe(duration.Seconds())
	SyncRecordsProcessed.Add(float64(recordsProcessed))
	if err != nil {
		errorType := "unknown"
		errorMsg := err.Error()
		switch {
		case strings.Contains(errorMsg, "duckdb"):
			errorType = "durable_store"
		case strings.Contains(errorMsg, "circuit"):
			errorType = "circuit_open"
		case strings.Contains(errorMsg, "context"):
			errorType = "timeout"
		default:
			errorType = "other"
		}
		SyncErrors.WithLabelValues(errorType).Inc()
	} else {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}
