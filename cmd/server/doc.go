// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package main is the entry point for the AISTiles server.

AISTiles ingests a live AIS vessel position feed, keeps an in-memory
snapshot tiled for map display, fans per-tile updates out to subscribed
WebSocket clients, and mirrors the snapshot into a DuckDB-backed durable
store on a batch interval.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("aistiles")
	├── DataSupervisor ("data-layer")
	│   ├── Ingest Client (upstream AIS feed)
	│   └── Store Sweep (active TTL expiry)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Dispatcher (per-tile dirty-set fan-out)
	│   ├── Batch Synchronizer (in-memory → durable store)
	│   └── NATS Components (optional, -tags nats)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (/ws, /healthz, /metrics)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and an optional
    config file
 2. Logging: zerolog with JSON/console output modes
 3. Durable store: DuckDB, vessels_current schema
 4. In-memory store: the live snapshot ingest writes to
 5. Dispatcher: the per-tile subscription index and flush loop
 6. Event bus: optional NATS dirty-tile bridge
 7. Ingest client: dials the upstream feed
 8. Batch synchronizer: periodic durable-store mirror
 9. Supervisor tree: Suture v4 process supervision
 10. HTTP server: Chi router serving /ws, /healthz, /metrics

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables (see internal/config/koanf.go for the
complete set):

	# Server
	PORT=3000
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Upstream AIS feed
	AISSTREAM_URL=wss://stream.aisstream.io/v0/stream
	AISSTREAM_API_KEY=<api-key>
	AISSTREAM_BBOX=22.1,113.8,22.6,114.5
	TILE_ZOOM=12

	# Durable store
	DUCKDB_PATH=/data/aistiles.duckdb

	# Batch synchronizer
	BATCH_SYNC_INTERVAL_MS=5000
	BATCH_SYNC_SIZE=1000
	BATCH_SYNC_RETRY_SPOOL=/data/aistiles-retry-spool

	# Optional distributed dirty-tile bus
	NATS_URL=
	NATS_SUBJECT=aistiles.dirty-tiles

See internal/config/koanf.go's envMappings for the complete variable list.

# Build Tags

	go build ./cmd/server             # Standard build, no NATS bridge
	go build -tags nats ./cmd/server  # Enable the distributed dirty-tile bus

A blank NATS_URL leaves the bus (if compiled with -tags nats) running
but unconnected, so a single-instance deployment never needs the tag
removed.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new WebSocket connections
 2. Waits for in-flight work to finish within the supervisor's
    shutdown timeout
 3. Stops the ingest client, sweep, dispatcher, and batch synchronizer
 4. Closes the durable store connection last

# See Also

  - internal/config: configuration management
  - internal/supervisor: process supervision
  - internal/api: HTTP surface and WebSocket upgrade
  - internal/ingest: upstream AIS feed client
  - internal/batchsync: periodic durable-store mirror
*/
package main
