// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/aistiles/internal/logging"
)

// enableProfiling turns on DuckDB's detailed query profiler when
// ENABLE_QUERY_PROFILING=true, for debugging slow upserts and scans.
func (db *DB) enableProfiling() error {
	if os.Getenv("ENABLE_QUERY_PROFILING") != "true" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "PRAGMA enable_profiling"); err != nil {
		return fmt.Errorf("database: enable profiling: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, "PRAGMA profiling_mode = 'detailed'"); err != nil {
		return fmt.Errorf("database: set profiling mode: %w", err)
	}

	logging.Info().Msg("query profiling enabled (detailed mode)")
	return nil
}

// ensureContext guarantees a deadline, defaulting to 30 seconds, so a
// stalled DuckDB call can never hang a caller indefinitely.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint, flushing pending writes to the main
// database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("database: checkpoint: %w", err)
	}
	return nil
}

// GetDatabasePath returns the configured database file path.
func (db *DB) GetDatabasePath() string {
	return db.cfg.Path
}

// VesselCount returns the number of rows in vessels_current, mainly for
// health reporting and tests.
func (db *DB) VesselCount(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM vessels_current").Scan(&count); err != nil {
		return 0, fmt.Errorf("database: count vessels: %w", err)
	}
	return count, nil
}
