// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package services provides suture.Service wrappers for the pipeline's
components.

This package adapts existing application components to the suture v4
supervision model, translating various lifecycle patterns (Start/Stop,
Run, ListenAndServe, RunWithContext) into suture's context-aware Serve
pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop/Run to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

Every wrapper declares its own narrow interface for the component it
adapts (ContextRunner, ContextHub, StartStopManager, Sweeper,
NATSComponentsRunner) rather than importing the component's package
directly, so this package never creates an import cycle back to
internal/ingest, internal/dispatcher, internal/batchsync,
internal/store, or internal/eventbus.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Ingest Client (IngestService):
  - Wraps *ingest.Client, whose Run method already blocks on ctx
  - Dial/subscribe/reconnect-with-backoff happens inside Run itself

Store Sweep (SweepService):
  - Ticks independently of the ingest client and dispatcher, calling
    Sweep on the in-memory store and forwarding any expired tiles to
    the dispatcher so a silent vessel's departure coalesces the same
    way an arrival does

Dispatcher (WebSocketHubService):
  - Wraps *dispatcher.Dispatcher's RunWithContext, which already
    implements the suture.Service pattern directly; this wrapper
    exists only to give it a name for logging

Batch Synchronizer (SyncService):
  - Wraps *batchsync.Manager with Start/Stop lifecycle
  - Mirrors the in-memory store into the durable store on a ticker

NATS Components (NATSComponentsService):
  - Wraps *eventbus.NATSBus with Start/Shutdown lifecycle
  - Build tag nats selects the real Watermill/NATS implementation;
    its absence selects a no-op stub with the same type and function
    names, so cmd/server never branches on the tag itself

# Usage Example

Creating and registering services:

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/aistiles/internal/supervisor"
	    "github.com/tomtom215/aistiles/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, disp *dispatcher.Dispatcher, syncMgr *batchsync.Manager) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    // HTTP server with 10s shutdown timeout
	    httpSvc := services.NewHTTPServerService(server, 10*time.Second)
	    tree.AddAPIService(httpSvc)

	    // Dispatcher
	    dispSvc := services.NewWebSocketHubService(disp)
	    tree.AddMessagingService(dispSvc)

	    // Batch synchronizer
	    syncSvc := services.NewSyncService(syncMgr)
	    tree.AddMessagingService(syncSvc)

	    // Start supervision
	    tree.Serve(ctx)
	}

# Lifecycle Patterns

The package handles three common lifecycle patterns:

Start/Stop Pattern:

	type StartStopper interface {
	    Start(ctx context.Context) error
	    Stop() error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    if err := s.component.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    return s.component.Stop()
	}

Run Pattern:

	type Runner interface {
	    Run(ctx context.Context) error  // Blocks until ctx is canceled
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    return s.component.Run(ctx)
	}

ListenAndServe Pattern:

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

Example error handling:

	func (s *SyncService) Serve(ctx context.Context) error {
	    if err := s.manager.Start(ctx); err != nil {
	        // Transient error - supervisor should restart
	        return fmt.Errorf("sync start failed: %w", err)
	    }

	    <-ctx.Done()

	    if err := s.manager.Stop(); err != nil {
	        return fmt.Errorf("sync stop failed: %w", err)
	    }

	    return ctx.Err()
	}

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Testing

Services can be tested with mock components:

	type MockServer struct {
	    started  bool
	    shutdown bool
	}

	func (m *MockServer) ListenAndServe() error {
	    m.started = true
	    <-time.After(time.Hour) // Block until shutdown
	    return nil
	}

	func (m *MockServer) Shutdown(ctx context.Context) error {
	    m.shutdown = true
	    return nil
	}

	func TestHTTPService(t *testing.T) {
	    mock := &MockServer{}
	    svc := services.NewHTTPServerService(mock, time.Second)

	    ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	    defer cancel()

	    svc.Serve(ctx)

	    if !mock.started { t.Error("server not started") }
	    if !mock.shutdown { t.Error("server not shutdown") }
	}

# Thread Safety

All service wrappers are safe for concurrent use:
  - State is protected by mutexes where needed
  - Context cancellation is handled atomically
  - Multiple Serve calls are not supported (undefined behavior)

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/dispatcher: per-tile fan-out wrapped by WebSocketHubService
  - internal/batchsync: durable-store mirror wrapped by SyncService
  - internal/ingest: upstream feed client wrapped by IngestService
*/
package services
