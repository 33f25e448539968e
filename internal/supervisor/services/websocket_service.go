// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package services

import (
	"context"
)

// ContextHub interface matches the dirty-tile dispatcher's RunWithContext
// method.
//
// This interface allows the WebSocketHubService to work with the
// dispatcher without importing internal/dispatcher, avoiding circular
// dependencies.
//
// Satisfied by *dispatcher.Dispatcher from internal/dispatcher/dispatcher.go.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService wraps the dirty-tile dispatcher as a supervised
// service.
//
// The dispatcher's RunWithContext method already implements the
// suture.Service pattern, so this wrapper simply delegates to it and
// provides a name for logging.
//
// Example usage:
//
//	d := dispatcher.New(store, cfg)
//	svc := services.NewWebSocketHubService(d)
//	tree.AddMessagingService(svc)
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
//
// This method delegates to hub.RunWithContext which:
//  1. Processes client registration/unregistration and broadcasts
//  2. Returns when the context is canceled
//  3. Gracefully closes all clients on shutdown
//
// The method returns ctx.Err() on normal shutdown.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (w *WebSocketHubService) String() string {
	return w.name
}
