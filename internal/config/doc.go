// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package config provides centralized configuration management for the AIS
ingest/store/dispatch/sync pipeline.

This package handles loading, validation, and parsing of environment
variables and an optional YAML config file, producing a single immutable
Config value consumed by every other package.

# Configuration Sources

The package reads configuration, in order of increasing precedence:
  - Built-in defaults
  - An optional YAML config file (path from CONFIG_PATH, or config.yaml/
    config.yml in the working directory, or /etc/aistiles/config.yaml)
  - Environment variables

# Configuration Structure

The package organizes configuration into logical groups:

  - IngestConfig: upstream AIS feed connection (URL, API key, bounding boxes, tile zoom)
  - StoreConfig: in-memory vessel store tuning (TTL)
  - DispatchConfig: dirty-tile fan-out flush cadence
  - SessionConfig: subscriber heartbeat, subscription cap, inbound rate limits
  - SyncConfig: batch synchronizer interval, batch size, retry spool location
  - DatabaseConfig: DuckDB connection and performance tuning
  - ServerConfig: HTTP surface bind address and timeouts
  - NATSConfig: optional distributed dirty-tile bus
  - CircuitBreakerConfig: gobreaker tuning for the durable store and synchronizer
  - LoggingConfig: zerolog level, format, and caller reporting

# Environment Variables

Ingest:
  - AISSTREAM_URL: upstream websocket URL (default: wss://stream.aisstream.io/v0/stream)
  - AISSTREAM_API_KEY: upstream API key (required)
  - AISSTREAM_BBOX: comma-separated bounding box list
  - TILE_ZOOM: tile zoom level (default: 12)
  - INGEST_FLUSH_MS: ingest-side flush interval (default: 1000)

Store / Dispatch / Session:
  - VESSEL_TTL_SECONDS: vessel staleness TTL (default: 120)
  - DISPATCH_FLUSH_MS: dispatcher flush interval (default: 500)
  - HEARTBEAT_MS: session heartbeat interval (default: 30000)

Batch Synchronizer:
  - BATCH_SYNC_INTERVAL_MS: tick interval (default: 5000)
  - BATCH_SYNC_SIZE: records scanned per tick (default: 1000)

Database:
  - DUCKDB_PATH: database file path (default: /data/aistiles.duckdb)
  - DUCKDB_MAX_MEMORY: memory limit (default: 2GB)
  - DUCKDB_THREADS: thread count (default: 0, meaning DuckDB's own default)

Server:
  - PORT: HTTP listen port (default: 3000)
  - HOST: bind address (default: 0.0.0.0)

Event Bus (optional, nats build tag):
  - NATS_URL: NATS server URL; empty disables the distributed bus
  - NATS_SUBJECT: subject for dirty-tile events

Logging:
  - LOG_LEVEL: zerolog level (default: info)
  - LOG_FORMAT: console or json (default: json)
  - LOG_CALLER: include caller file:line (default: false)

Config Encryption (optional, config-file only):
  - CONFIG_ENCRYPTION_KEY: secret used to encrypt AISSTREAM_API_KEY at rest
    when it is stored in a config file rather than supplied directly as an
    environment variable.

# Usage Example

	import "github.com/tomtom215/aistiles/internal/config"

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}

	fmt.Printf("listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("tile zoom: %d\n", cfg.Ingest.TileZoom)

# Validation

Validate() checks required fields (AISSTREAM_API_KEY), numeric ranges
(tile zoom, TCP port), and positive durations/sizes before LoadWithKoanf
returns, so a misconfigured process fails fast at startup rather than
partway through ingest.

# Thread Safety

The Config struct is immutable after LoadWithKoanf() returns, making it
safe for concurrent access from multiple goroutines without synchronization.

# See Also

  - internal/database: consumes DatabaseConfig
  - internal/ingest: consumes IngestConfig
  - internal/batchsync: consumes SyncConfig and CircuitBreakerConfig
*/
package config
