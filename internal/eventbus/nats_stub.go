// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

//go:build !nats

package eventbus

import (
	"context"

	"github.com/tomtom215/aistiles/internal/config"
	"github.com/tomtom215/aistiles/internal/logging"
)

// DirtyTileSink mirrors the nats-build interface so callers compile
// identically either way. Satisfied by *dispatcher.Dispatcher.
type DirtyTileSink interface {
	MarkDirty(tiles []string)
}

// NATSBus is a stub for builds without the nats tag: single-instance
// deployments never construct a real bus, so every method is a no-op.
type NATSBus struct{}

// NewNATSBus returns a stub bus for non-NATS builds.
func NewNATSBus(_ config.NATSConfig, _ DirtyTileSink) *NATSBus {
	return &NATSBus{}
}

// Start logs that distributed dispatch is unavailable and returns nil:
// a single-instance deployment doesn't need NATS to function.
func (b *NATSBus) Start(_ context.Context) error {
	logging.Info().Msg("eventbus: built without NATS support, running single-instance (build with -tags nats to enable)")
	return nil
}

// Publish is a no-op stub.
func (b *NATSBus) Publish(_ []string) {}

// Shutdown is a no-op stub.
func (b *NATSBus) Shutdown(_ context.Context) {}

// IsRunning always reports false for non-NATS builds.
func (b *NATSBus) IsRunning() bool {
	return false
}
