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
	"time"

	"github.com/tomtom215/aistiles/internal/logging"
)

// duckdbVersion must track the duckdb-go-bindings version used by go.mod,
// since extension files are laid out per-version on disk.
const duckdbVersion = "v1.4.3"

// preloadExtensions loads the spatial and icu extensions into a throwaway
// in-memory database before the caller opens the main database file.
// DuckDB replays the WAL on open, before extension autoloading runs, so a
// WAL entry depending on an extension function (ST_Point, TIMESTAMPTZ
// defaults) would otherwise fail to replay. Returns whether the spatial
// extension is available; failure to preload is logged and non-fatal,
// since a fresh database file has no WAL to replay.
func preloadExtensions() bool {
	conn, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		logging.Warn().Err(err).Msg("failed to open in-memory database for extension preload")
		return false
	}
	defer func() {
		conn.SetConnMaxLifetime(0)
		conn.SetMaxIdleConns(0)
		conn.SetMaxOpenConns(0)
		closeQuietly(conn)
	}()

	spatialLoaded := false
	for _, ext := range []string{"icu", "spatial"} {
		if !isExtensionInstalledLocally(ext) {
			logging.Debug().Str("extension", ext).Msg("extension not installed locally, skipping preload")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := conn.ExecContext(ctx, fmt.Sprintf("LOAD %s;", ext))
		cancel()

		if err != nil {
			logging.Debug().Str("extension", ext).Err(err).Msg("failed to preload extension")
			continue
		}
		logging.Debug().Str("extension", ext).Msg("extension preloaded successfully")
		if ext == "spatial" {
			spatialLoaded = true
		}
	}

	return spatialLoaded
}

// isExtensionInstalledLocally reports whether an extension file exists in
// the local DuckDB extension cache, letting preloadExtensions skip a
// network INSTALL when extensions are already provisioned.
func isExtensionInstalledLocally(extensionName string) bool {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	platform := runtime.GOOS + "_" + runtime.GOARCH
	extPath := filepath.Join(homeDir, ".duckdb", "extensions", duckdbVersion, platform, extensionName+".duckdb_extension")

	_, err = os.Stat(extPath)
	return err == nil
}

// schemaContext returns a context bounded to 60 seconds, generous enough
// for DDL against an empty or lightly-populated database.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// getTableCreationQueries returns the DDL for vessels_current, the
// durable mirror of the in-memory store, and schema_migrations, the
// tracking table consulted by runVersionedMigrations.
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS vessels_current (
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
		);`,
		schemaMigrationsTable,
	}
}

// createTables executes getTableCreationQueries in order.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("database: create table: %w", err)
		}
	}
	return nil
}

// getIndexQueries returns the index DDL for vessels_current. The spatial
// index is only attempted when the spatial extension loaded successfully;
// DuckDB's spatial extension exposes a generalized-search-tree-style
// spatial index as RTREE.
func (db *DB) getIndexQueries() []string {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_vessels_tile_updated ON vessels_current (tile_z12, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_vessels_updated_at ON vessels_current (updated_at DESC);`,
	}
	if db.spatialAvailable {
		queries = append(queries, `CREATE INDEX IF NOT EXISTS idx_vessels_geom ON vessels_current USING RTREE (geom);`)
	}
	return queries
}

// createIndexes executes getIndexQueries in order, logging (rather than
// failing) on a spatial index error, since a missing spatial extension is
// a degraded-but-usable state: vessels_current still upserts and the
// batch synchronizer still runs, just without the R-tree nearest-vessel
// query path.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			logging.Warn().Str("query", query).Err(err).Msg("failed to create index")
			continue
		}
	}
	return nil
}
