// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package database

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"
)

// configureConnectionPool tunes the pool for a single-process batch
// workload: a handful of open connections, short idle reuse, and a
// lifetime cap that sidesteps long-lived-connection staleness.
func (db *DB) configureConnectionPool() error {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
	return nil
}

// reconnect re-establishes the database connection with exponential
// backoff after a connection-level failure. It first pings to rule out a
// false positive (a single query error that isn't actually connection
// loss), then closes and reopens the connection, replaying schema
// initialization so a brand-new file (e.g. after disk loss) still ends
// up with vessels_current present.
func (db *DB) reconnect() error {
	db.reconnectMu.Lock()
	defer db.reconnectMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err == nil {
		return nil
	}

	if db.conn != nil {
		closeWithLog(db.conn, "database connection")
	}

	var lastErr error
	for attempt := 0; attempt < db.maxReconnectTries; attempt++ {
		if attempt > 0 {
			delay := db.reconnectDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := db.attemptReconnect(); err != nil {
			lastErr = fmt.Errorf("reconnect attempt %d: %w", attempt+1, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("database: failed to reconnect after %d attempts: %w", db.maxReconnectTries, lastErr)
}

// attemptReconnect opens a fresh connection using the same tuning as New
// and re-runs schema initialization.
func (db *DB) attemptReconnect() error {
	numThreads := db.cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	preserveOrder := "true"
	if !db.cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		db.cfg.Path, numThreads, db.cfg.MaxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return fmt.Errorf("database: reopen %s: %w", db.cfg.Path, err)
	}

	db.conn = conn
	if err := db.configureConnectionPool(); err != nil {
		closeQuietly(conn)
		return err
	}
	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return err
	}
	return nil
}
