// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package batchsync implements the batch synchronizer: a periodic ticker
that incrementally mirrors the in-memory vessel store (internal/store)
into the durable DuckDB store (internal/database), rather than writing
through on every position report.

# Tick

Every Sync.Interval, Manager.Scan()s up to Sync.BatchSize records from
the store (the scan cursor advances across ticks, so the whole table is
eventually covered without a single tick having to pay for it), then
calls database.UpsertBatch with the result. UpsertBatch is itself
circuit-broken, so a string of DuckDB failures trips the breaker open
rather than blocking the ticker.

# Retry Spool

A tick whose UpsertBatch fails (circuit open, or the retry budget inside
UpsertBatch exhausted) does not retry inline and does not drop the
batch: it spools the batch to a dgraph-io/badger/v4-backed on-disk
queue at Sync.RetrySpoolDir. The following tick first drains the spool,
attempting each spooled batch before pulling a fresh one from the
store, so a prolonged durable-store outage doesn't silently lose
updates once the store's TTL expires the corresponding in-memory
records.

# Lifecycle

Manager implements the Start(ctx)/Stop() shape the supervisor's
SyncService adapter expects (internal/supervisor/services/sync_service.go):
Start spawns the ticker goroutine and returns immediately; Stop closes
the stop channel and waits for the goroutine to exit.

# See Also

  - internal/store: Scan, the incremental read side of each tick
  - internal/database: UpsertBatch, the durable write side of each tick
  - internal/config: SyncConfig and CircuitBreakerConfig
*/
package batchsync
