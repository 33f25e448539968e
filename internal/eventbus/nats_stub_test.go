// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

//go:build !nats

package eventbus

import (
	"context"
	"testing"

	"github.com/tomtom215/aistiles/internal/config"
)

type fakeSink struct {
	marked [][]string
}

func (f *fakeSink) MarkDirty(tiles []string) {
	f.marked = append(f.marked, tiles)
}

func TestNATSBusStub_StartIsNoOp(t *testing.T) {
	bus := NewNATSBus(config.NATSConfig{}, &fakeSink{})
	if err := bus.Start(context.Background()); err != nil {
		t.Errorf("Start() should never error in non-NATS build, got %v", err)
	}
	if bus.IsRunning() {
		t.Error("IsRunning() should be false in non-NATS build")
	}
}

func TestNATSBusStub_PublishAndShutdownAreNoOps(t *testing.T) {
	bus := NewNATSBus(config.NATSConfig{URL: "nats://ignored:4222"}, &fakeSink{})
	// Should not panic.
	bus.Publish([]string{"12/1/1"})
	bus.Shutdown(context.Background())
}
