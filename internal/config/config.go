// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and an optional config file. It is the program's sole configuration surface;
// nothing outside this package reads os.Getenv directly.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every field
//  2. Config File: optional YAML file, path from CONFIG_PATH
//  3. Environment Variables: highest precedence, per the operator table below
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Ingest     IngestConfig     `koanf:"ingest"`
	Store      StoreConfig      `koanf:"store"`
	Dispatch   DispatchConfig   `koanf:"dispatch"`
	Session    SessionConfig    `koanf:"session"`
	Sync       SyncConfig       `koanf:"sync"`
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	NATS       NATSConfig       `koanf:"nats"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	Logging    LoggingConfig    `koanf:"logging"`
	Encryption EncryptionConfig `koanf:"encryption"`
}

// IngestConfig configures the upstream AIS feed client (component D).
type IngestConfig struct {
	URL           string        `koanf:"url"`
	APIKey        string        `koanf:"api_key"`
	BoundingBoxes string        `koanf:"bounding_boxes"`
	TileZoom      int           `koanf:"tile_zoom"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	DialTimeout   time.Duration `koanf:"dial_timeout"`
}

// StoreConfig configures the in-memory vessel store (component B).
type StoreConfig struct {
	VesselTTL time.Duration `koanf:"vessel_ttl"`
}

// DispatchConfig configures the dirty-tile dispatcher (component F).
type DispatchConfig struct {
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// SessionConfig configures subscriber sessions (component E).
type SessionConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	MaxSubscribedTiles int          `koanf:"max_subscribed_tiles"`
	InboundRateLimit  float64       `koanf:"inbound_rate_limit"` // messages/sec
	InboundRateBurst  int           `koanf:"inbound_rate_burst"`
}

// SyncConfig configures the batch synchronizer (component G).
type SyncConfig struct {
	Interval      time.Duration `koanf:"interval"`
	BatchSize     int           `koanf:"batch_size"`
	RetrySpoolDir string        `koanf:"retry_spool_dir"`
}

// DatabaseConfig configures the DuckDB-backed durable store (component C).
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// ServerConfig configures the HTTP surface (component H): /ws, /healthz, /metrics.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	// Timeout bounds both read and write deadlines on the HTTP server.
	Timeout time.Duration `koanf:"timeout"`
	// ShutdownGrace is how long the drain window stays open on shutdown:
	// new /ws upgrades and /healthz both return 503 immediately, but
	// already-connected sessions keep draining their outbound queues
	// for this long before they're force-closed with code 1001.
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`
}

// NATSConfig configures the optional distributed dirty-tile bus.
// Zero-value (URL empty) means the eventbus falls back to an in-process channel.
type NATSConfig struct {
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// CircuitBreakerConfig configures the gobreaker wrapping the durable store
// and batch synchronizer (components C and G).
type CircuitBreakerConfig struct {
	MaxRequests uint32        `koanf:"max_requests"`
	Interval    time.Duration `koanf:"interval"`
	Timeout     time.Duration `koanf:"timeout"`
	FailureRatio float64      `koanf:"failure_ratio"`
	MinRequests uint32        `koanf:"min_requests"`
}

// LoggingConfig configures the zerolog wrapper.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EncryptionConfig configures optional at-rest encryption of the AISStream
// API key when it is supplied via a config file rather than an environment
// variable. Key is read from CONFIG_ENCRYPTION_KEY; it is never written to
// the config file itself.
type EncryptionConfig struct {
	Key string `koanf:"-"`
}

// Validate checks required fields and internally-consistent values.
func (c *Config) Validate() error {
	if c.Ingest.URL == "" {
		return fmt.Errorf("config: ingest.url (AISSTREAM_URL) is required")
	}
	if c.Ingest.APIKey == "" {
		return fmt.Errorf("config: ingest.api_key (AISSTREAM_API_KEY) is required")
	}
	if c.Ingest.TileZoom <= 0 || c.Ingest.TileZoom > 24 {
		return fmt.Errorf("config: ingest.tile_zoom must be in (0,24], got %d", c.Ingest.TileZoom)
	}
	if c.Store.VesselTTL <= 0 {
		return fmt.Errorf("config: store.vessel_ttl must be positive")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("config: sync.batch_size must be positive")
	}
	if c.Session.MaxSubscribedTiles <= 0 {
		return fmt.Errorf("config: session.max_subscribed_tiles must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	return nil
}
