// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aistiles/internal/metrics"
	"github.com/tomtom215/aistiles/internal/models"
	"github.com/tomtom215/aistiles/internal/tile"
)

const upsertQuerySpatial = `INSERT INTO vessels_current (
	mmsi, geom, tile_z12, lon, lat, cog, sog, heading, updated_at
) VALUES (?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (mmsi) DO UPDATE SET
	geom = EXCLUDED.geom,
	tile_z12 = EXCLUDED.tile_z12,
	lon = EXCLUDED.lon,
	lat = EXCLUDED.lat,
	cog = EXCLUDED.cog,
	sog = EXCLUDED.sog,
	heading = EXCLUDED.heading,
	updated_at = EXCLUDED.updated_at`

// upsertQueryNoSpatial omits geom entirely when the spatial extension
// failed to load; the tile_z12/lon/lat columns remain exact and are
// sufficient for the batch synchronizer's own bookkeeping, just without
// the R-tree nearest-vessel query path.
const upsertQueryNoSpatial = `INSERT INTO vessels_current (
	mmsi, tile_z12, lon, lat, cog, sog, heading, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (mmsi) DO UPDATE SET
	tile_z12 = EXCLUDED.tile_z12,
	lon = EXCLUDED.lon,
	lat = EXCLUDED.lat,
	cog = EXCLUDED.cog,
	sog = EXCLUDED.sog,
	heading = EXCLUDED.heading,
	updated_at = EXCLUDED.updated_at`

// UpsertBatch writes records to vessels_current in a single transaction,
// circuit-broken so repeated DuckDB failures trip open rather than
// stalling the batch synchronizer's ticker. The durable store always
// indexes by the fixed z=12 tile regardless of the ingest-side tile zoom
// used for subscriptions.
func (db *DB) UpsertBatch(ctx context.Context, records []models.VesselRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, err := db.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, db.upsertBatchWithRetry(ctx, records)
	})

	switch {
	case err == nil:
		metrics.RecordCircuitBreakerResult(breakerName, "success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCircuitBreakerResult(breakerName, "rejected")
	default:
		metrics.RecordCircuitBreakerResult(breakerName, "failure")
	}
	return err
}

// upsertBatchWithRetry runs doUpsertBatch, retrying on transaction
// conflicts (expected under concurrent writers) with exponential backoff,
// and failing fast on internal errors or anything else.
func (db *DB) upsertBatchWithRetry(ctx context.Context, records []models.VesselRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		start := time.Now()
		err := db.doUpsertBatch(ctx, records)
		metrics.RecordDBQuery("upsert_batch", "vessels_current", time.Since(start), err)

		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("database: upsert batch: %w", ctx.Err())
		}

		if isInternalError(err) {
			return fmt.Errorf("database: internal error during upsert: %w", err)
		}

		if isConnectionError(err) {
			if rErr := db.reconnect(); rErr != nil {
				return fmt.Errorf("database: reconnect after connection error: %w", rErr)
			}
			continue
		}

		if isTransactionConflict(err) && attempt < maxRetries-1 {
			backoff := time.Millisecond * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return err
	}

	return fmt.Errorf("database: upsert batch exceeded retries: %w", lastErr)
}

// doUpsertBatch executes the batch in one transaction, one prepared
// statement reused across rows.
func (db *DB) doUpsertBatch(ctx context.Context, records []models.VesselRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := upsertQueryNoSpatial
	if db.spatialAvailable {
		query = upsertQuerySpatial
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("database: prepare upsert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, rec := range records {
		if err := execUpsert(ctx, stmt, rec, db.spatialAvailable); err != nil {
			return fmt.Errorf("database: upsert mmsi %d: %w", rec.MMSI, err)
		}
		metrics.DBSpatialOperations.WithLabelValues("upsert").Inc()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: commit upsert batch: %w", err)
	}
	return nil
}

func execUpsert(ctx context.Context, stmt *sql.Stmt, rec models.VesselRecord, spatial bool) error {
	x, y := tile.Of(rec.Lat, rec.Lon, 12)
	tileZ12 := tile.Z12Encode(x, y)

	if spatial {
		_, err := stmt.ExecContext(ctx,
			rec.MMSI, rec.Lon, rec.Lat, tileZ12, rec.Lon, rec.Lat,
			rec.COG, rec.SOG, rec.Heading, rec.Timestamp)
		return err
	}

	_, err := stmt.ExecContext(ctx,
		rec.MMSI, tileZ12, rec.Lon, rec.Lat,
		rec.COG, rec.SOG, rec.Heading, rec.Timestamp)
	return err
}
