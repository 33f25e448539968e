// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package main is the entry point for the AISTiles server.
//
// AISTiles ingests a live AIS (Automatic Identification System) vessel
// position feed, keeps an in-memory snapshot tiled for map display,
// fans out per-tile updates to subscribed WebSocket clients, and mirrors
// the snapshot into a DuckDB-backed durable store on a batch interval.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and an
//     optional config file (Koanf v2)
//  2. Durable store: open DuckDB and ensure the vessels_current schema
//  3. In-memory store: the authoritative live snapshot ingest writes to
//     and the HTTP/WebSocket surface reads from
//  4. Dispatcher: the per-tile dirty-set fan-out to subscribed sessions
//  5. Event bus: optional NATS bridge so dirty-tile hints reach every
//     instance in a multi-instance deployment (build tag "nats")
//  6. Ingest client: dials the upstream feed and starts applying reports
//  7. Batch synchronizer: periodic in-memory-to-durable-store mirror
//  8. HTTP surface: /ws, /healthz, /metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, an optional config file, then
// built-in defaults. See internal/config for the full set of fields and
// internal/config/koanf.go for the environment variable names.
//
// # Build Tags
//
// Optional build tags enable additional functionality:
//
//	go build -tags "nats" ./cmd/server  # Enable the distributed dirty-tile bus
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// surface opens a drain window (Server.ShutdownGrace, 5s by default)
// during which /ws and /healthz both return 503 for new requests while
// already-connected sessions keep draining their outbound queues; once
// the window elapses, remaining sessions are closed with code 1001 and
// the listener itself shuts down, then the durable store connection is
// closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/aistiles/internal/api"
	"github.com/tomtom215/aistiles/internal/batchsync"
	"github.com/tomtom215/aistiles/internal/config"
	"github.com/tomtom215/aistiles/internal/database"
	"github.com/tomtom215/aistiles/internal/dispatcher"
	"github.com/tomtom215/aistiles/internal/eventbus"
	"github.com/tomtom215/aistiles/internal/ingest"
	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/session"
	"github.com/tomtom215/aistiles/internal/store"
	"github.com/tomtom215/aistiles/internal/supervisor"
	"github.com/tomtom215/aistiles/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Info().Msg("Starting AISTiles with supervisor tree")

	db, err := database.New(&cfg.Database, &cfg.CircuitBreaker)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize durable store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing durable store")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Durable store initialized")

	vesselStore := store.New(cfg.Store.VesselTTL)

	disp := dispatcher.New(vesselStore, cfg.Dispatch)

	bus := eventbus.NewNATSBus(cfg.NATS, disp)

	onDirtyTiles := func(tiles []string) {
		disp.MarkDirty(tiles)
		bus.Publish(tiles)
	}

	ingestClient := ingest.New(ingest.Config{
		URL:           cfg.Ingest.URL,
		APIKey:        cfg.Ingest.APIKey,
		BoundingBoxes: cfg.Ingest.BoundingBoxes,
		TileZoom:      cfg.Ingest.TileZoom,
		FlushInterval: cfg.Ingest.FlushInterval,
		DialTimeout:   cfg.Ingest.DialTimeout,
	}, vesselStore, onDirtyTiles)

	syncManager, err := batchsync.NewManager(vesselStore, db, &cfg.Sync)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize batch synchronizer")
	}

	handler := api.NewHandler(vesselStore, disp, session.Config(cfg.Session))
	router := api.NewRouter(handler, api.DefaultCORSConfig())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	sweepInterval := cfg.Store.VesselTTL / 4
	if sweepInterval < time.Second {
		sweepInterval = time.Second
	}

	tree.AddDataService(services.NewIngestService(ingestClient))
	tree.AddDataService(services.NewSweepService(vesselStore, disp, sweepInterval))

	tree.AddMessagingService(services.NewWebSocketHubService(disp))
	tree.AddMessagingService(services.NewSyncService(syncManager))
	tree.AddMessagingService(services.NewNATSComponentsService(bus))

	httpService := services.NewHTTPServerService(httpServer, 10*time.Second).
		WithShutdownNotifier(handler, cfg.Server.ShutdownGrace)
	tree.AddAPIService(httpService)
	logging.Info().Str("addr", httpServer.Addr).Dur("shutdown_grace", cfg.Server.ShutdownGrace).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
