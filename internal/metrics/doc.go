// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus
client library, exposing metrics for monitoring the ingest/store/dispatch/sync
pipeline's performance, errors, and system health.

# Overview

The package provides metrics for:
  - Durable store (DuckDB) query performance
  - Circuit breaker state transitions
  - Upstream ingest throughput and drop rates
  - Dispatcher flush cadence and fan-out volume
  - Subscriber session counts and rate limiting
  - Batch synchronizer runs and retry spool depth
  - Optional event bus publish/consume counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP Surface Metrics (the small /ws, /healthz, /metrics surface):
  - http_requests_total: Total HTTP requests (counter)
    Labels: method, endpoint, status_code
  - http_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - http_active_requests: In-flight requests (gauge)

Durable Store Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type
  - duckdb_connection_pool_size: Active database connections (gauge)
  - duckdb_spatial_operations_total: ST_* function calls (counter)
    Labels: operation_type

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests observed (counter)
    Labels: name, result
  - circuit_breaker_consecutive_failures: Current streak (gauge)
    Labels: name
  - circuit_breaker_transitions_total: State transitions (counter)
    Labels: name, from, to

Ingest Metrics:
  - ingest_positions_accepted_total: Position reports applied to the store (counter)
  - ingest_positions_dropped_total: Position reports rejected (counter)
    Labels: reason
  - ingest_connection_state: Upstream connection state (gauge)
  - ingest_reconnects_total: Reconnect attempts (counter)

Dispatcher Metrics:
  - dispatch_tick_duration_seconds: Duration of one flush tick (histogram)
  - dispatch_dirty_tiles: Dirty tiles handled per tick (histogram)
  - dispatch_messages_sent_total: Tile-update messages sent (counter)

Session Metrics:
  - sessions_active: Connected subscriber sessions (gauge)
  - session_subscribed_tiles: Tiles subscribed at disconnect (histogram)
  - session_rate_limit_hits_total: Inbound messages rejected by the rate limiter (counter)
  - session_errors_total: Session-level errors (counter)
    Labels: reason

Batch Synchronizer Metrics:
  - batchsync_duration_seconds: Duration of one run (histogram)
  - batchsync_records_processed_total: Records upserted (counter)
  - batchsync_errors_total: Failed runs (counter)
    Labels: error_type
  - batchsync_last_success_timestamp: Unix timestamp of last success (gauge)
  - batchsync_retry_spool_depth: Batches waiting in the retry spool (gauge)

Cache Metrics:
  - cache_hits_total / cache_misses_total / cache_evictions_total / cache_size
    Labels: cache_type

Event Bus Metrics (optional, nats build tag):
  - eventbus_messages_published_total
  - eventbus_messages_consumed_total
  - eventbus_parse_failed_total

# Usage Example

	import (
	    "github.com/tomtom215/aistiles/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())
	    metrics.RecordIngestAccepted()
	    metrics.RecordDBQuery("upsert", "vessels_current", 5*time.Millisecond, nil)
	}

# Prometheus Configuration

	scrape_configs:
	  - job_name: 'aistiles'
	    static_configs:
	      - targets: ['localhost:8080']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# Thread Safety

All metric recording functions are thread-safe; the Prometheus client
library handles synchronization internally.

# Cardinality Management

Label sets are bounded by construction: operation/table names are fixed
strings chosen by the caller, circuit breaker names are the fixed set of
breakers wired in main, and error_type values are normalized into a small
set of categories rather than raw error strings.

# See Also

  - internal/database: durable store query instrumentation
  - internal/dispatcher: flush tick instrumentation
  - internal/batchsync: synchronizer run instrumentation
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
*/
package metrics
