// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/aistiles/internal/config"
	"github.com/tomtom215/aistiles/internal/logging"
)

// DB wraps a DuckDB connection holding the vessels_current durable mirror
// of the in-memory store, plus the resilience machinery (reconnect,
// circuit breaker) that shields the batch synchronizer from transient
// DuckDB failures.
type DB struct {
	conn             *sql.DB
	cfg              *config.DatabaseConfig
	spatialAvailable bool

	reconnectMu       sync.Mutex
	maxReconnectTries int
	reconnectDelay    time.Duration

	breaker *gobreaker.CircuitBreaker[struct{}]
}

// New opens (creating if necessary) the DuckDB database file at cfg.Path,
// configures its connection pool, and initializes the vessels_current
// schema. The circuit breaker guarding UpsertBatch is tuned from cbCfg.
func New(cfg *config.DatabaseConfig, cbCfg *config.CircuitBreakerConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("database: create directory %s: %w", dbDir, err)
		}
	}

	// Extensions must be loaded into the process before the main database
	// file is opened: DuckDB replays the WAL immediately on open, and a
	// WAL entry that depends on an extension function (ST_Point in our
	// upserts) fails to replay until the extension is registered.
	spatialAvailable := preloadExtensions()

	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", cfg.Path, err)
	}

	db := &DB{
		conn:              conn,
		cfg:               cfg,
		spatialAvailable:  spatialAvailable,
		maxReconnectTries: 3,
		reconnectDelay:    2 * time.Second,
	}

	if err := db.configureConnectionPool(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("database: configure pool: %w", err)
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("database: initialize schema: %w", err)
	}

	db.breaker = newUpsertBreaker(cbCfg)

	return db, nil
}

// Close checkpoints the WAL and closes the underlying connection. The
// checkpoint prevents WAL replay, on the next startup, of the very
// extension-dependent DDL that preloadExtensions works around here.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint database before close")
	}
	cancel()

	return db.conn.Close()
}

// Ping reports whether the underlying connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database: connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// initialize creates the vessels_current table, runs versioned migrations,
// builds indexes, and checkpoints the result.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}

	if err := db.runVersionedMigrations(); err != nil {
		return err
	}

	if err := db.createIndexes(); err != nil {
		return err
	}

	// See Close: checkpointing here avoids replaying the same
	// extension-dependent schema statements from the WAL on next startup.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint after schema initialization")
	}

	return nil
}
