// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package database implements the durable store: a DuckDB-backed mirror of
the in-memory vessel table, periodically refreshed by the batch
synchronizer (internal/batchsync) rather than on every position report.

# Schema

	CREATE TABLE vessels_current (
		mmsi        BIGINT PRIMARY KEY,
		geom        GEOMETRY NOT NULL,
		tile_z12    BIGINT NOT NULL,
		lon         DOUBLE NOT NULL,
		lat         DOUBLE NOT NULL,
		cog         DOUBLE,
		sog         DOUBLE,
		heading     INTEGER,
		updated_at  TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

with a composite index on (tile_z12, updated_at DESC), a spatial index on
geom (DuckDB's spatial extension exposes this as an RTREE index, the
engine's concrete realization of a generalized-search-tree-style spatial
index), and a BTree index on updated_at DESC.

# Extension Preloading

Like the teacher package, extensions (spatial, icu) are preloaded into a
throwaway in-memory database before the main database file is opened.
DuckDB's WAL replay runs before extension autoloading, so a WAL that
contains a DDL or DML statement depending on an extension function (here,
ST_Point in the upsert) fails to replay unless the extension is already
registered with the process. Preloading is best-effort: a failure is
logged and the spatial column is then populated with NULL/omitted rather
than failing startup.

# Durability and Recovery

Close() issues a CHECKPOINT before closing the connection to flush the
WAL, avoiding replay of the same extension-dependent statements on next
startup for the same underlying reason.

# Resilience

UpsertBatch is wrapped in a sony/gobreaker/v2 circuit breaker (see
circuit_breaker.go): repeated failures trip the breaker, and callers
(the batch synchronizer) fall back to spooling the batch in a
dgraph-io/badger/v4-backed retry queue rather than retrying inline.

# See Also

  - internal/batchsync: the sole caller of UpsertBatch
  - internal/config: DatabaseConfig and CircuitBreakerConfig
*/
package database
