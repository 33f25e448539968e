// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations checked when CONFIG_PATH
// is unset. The first existing path wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/aistiles/config.yaml",
	"/etc/aistiles/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit
// config file path, overriding DefaultConfigPaths.
const ConfigPathEnvVar = "CONFIG_PATH"

var k = koanf.New(".")

// defaultConfig returns the built-in defaults matching the operator table
// in the project's configuration reference.
func defaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			URL:           "wss://stream.aisstream.io/v0/stream",
			TileZoom:      12,
			FlushInterval: time.Second,
			DialTimeout:   10 * time.Second,
		},
		Store: StoreConfig{
			VesselTTL: 120 * time.Second,
		},
		Dispatch: DispatchConfig{
			FlushInterval: 500 * time.Millisecond,
		},
		Session: SessionConfig{
			HeartbeatInterval:  30 * time.Second,
			MaxSubscribedTiles: 1500,
			InboundRateLimit:   5,
			InboundRateBurst:   10,
		},
		Sync: SyncConfig{
			Interval:      5 * time.Second,
			BatchSize:     1000,
			RetrySpoolDir: "/data/aistiles-retry-spool",
		},
		Database: DatabaseConfig{
			Path:                   "/data/aistiles.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Server: ServerConfig{
			Port:          3000,
			Host:          "0.0.0.0",
			Timeout:       30 * time.Second,
			ShutdownGrace: 5 * time.Second,
		},
		NATS: NATSConfig{
			Subject: "aistiles.dirty-tiles",
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      2 * time.Minute,
			FailureRatio: 0.6,
			MinRequests:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// sliceConfigPaths lists the koanf dot-paths whose environment-variable
// values are comma-separated and need splitting into a slice. None of the
// current fields need this, but the hook is kept for config-file-supplied
// list values that koanf's env provider would otherwise leave as strings.
var sliceConfigPaths = []string{}

// envMappings maps legacy-shaped uppercase environment variable names
// (lowercased, as koanf's env.Provider presents them to the transform
// function) to koanf dot-paths. Unmapped variables are skipped so stray
// environment noise never leaks into the config tree.
var envMappings = map[string]string{
	"aisstream_url":                "ingest.url",
	"aisstream_api_key":            "ingest.api_key",
	"aisstream_bbox":               "ingest.bounding_boxes",
	"tile_zoom":                    "ingest.tile_zoom",
	"ingest_flush_ms":              "ingest.flush_interval",
	"ingest_dial_timeout_ms":       "ingest.dial_timeout",
	"vessel_ttl_seconds":           "store.vessel_ttl",
	"dispatch_flush_ms":            "dispatch.flush_interval",
	"heartbeat_ms":                 "session.heartbeat_interval",
	"session_max_tiles":            "session.max_subscribed_tiles",
	"session_rate_limit":           "session.inbound_rate_limit",
	"session_rate_burst":           "session.inbound_rate_burst",
	"batch_sync_interval_ms":       "sync.interval",
	"batch_sync_size":              "sync.batch_size",
	"batch_sync_retry_spool":       "sync.retry_spool_dir",
	"duckdb_path":                  "database.path",
	"duckdb_max_memory":            "database.max_memory",
	"duckdb_threads":               "database.threads",
	"port":                         "server.port",
	"host":                         "server.host",
	"server_timeout":               "server.timeout",
	"server_shutdown_grace_ms":     "server.shutdown_grace",
	"nats_url":                     "nats.url",
	"nats_subject":                 "nats.subject",
	"circuit_breaker_max_requests": "circuit_breaker.max_requests",
	"circuit_breaker_interval_ms":  "circuit_breaker.interval",
	"circuit_breaker_timeout_ms":   "circuit_breaker.timeout",
	"circuit_breaker_failure_ratio": "circuit_breaker.failure_ratio",
	"circuit_breaker_min_requests":  "circuit_breaker.min_requests",
	"log_level":                    "logging.level",
	"log_format":                   "logging.format",
	"log_caller":                   "logging.caller",
}

// envTransformFunc adapts environment variable keys into koanf dot-paths,
// dropping anything not present in envMappings.
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := envMappings[lower]; ok {
		return mapped
	}
	return ""
}

// findConfigFile resolves the config file path, if any, to load. Returns
// an empty string when none of the candidate paths exist.
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// processSliceFields converts comma-separated environment string values
// into string slices for paths listed in sliceConfigPaths.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		v := k.String(path)
		if v == "" {
			continue
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		_ = k.Set(path, parts)
	}
}

// LoadWithKoanf loads configuration from defaults, an optional config
// file, and environment variables, in that order of increasing
// precedence, then validates the result.
func LoadWithKoanf() (*Config, error) {
	defaults := defaultConfig()

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Encryption.Key = os.Getenv("CONFIG_ENCRYPTION_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetKoanfInstance returns the package-level koanf instance, primarily
// for tests that need to inspect loaded keys directly.
func GetKoanfInstance() *koanf.Koanf {
	return k
}
