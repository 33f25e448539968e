// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

//go:build nats && integration

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/aistiles/internal/config"
)

// startEmbeddedNATS boots a self-contained NATS server on an ephemeral
// port for the duration of one test, mirroring the teacher's
// EmbeddedServer pattern without carrying JetStream: core pub/sub is
// all a dirty-tile signal needs.
func startEmbeddedNATS(t *testing.T) string {
	t.Helper()

	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	ns, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("create embedded NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS server not ready within timeout")
	}
	t.Cleanup(ns.Shutdown)

	return fmt.Sprintf("nats://%s", ns.Addr().String())
}

type syncSink struct {
	mu     sync.Mutex
	marked [][]string
}

func (s *syncSink) MarkDirty(tiles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, tiles)
}

func (s *syncSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marked)
}

func TestNATSBus_PublishIsDeliveredToSink(t *testing.T) {
	url := startEmbeddedNATS(t)

	sink := &syncSink{}
	bus := NewNATSBus(config.NATSConfig{URL: url, Subject: "test.dirty-tiles"}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bus.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bus.Shutdown(context.Background())

	if !bus.IsRunning() {
		t.Fatal("expected bus to report running after Start")
	}

	bus.Publish([]string{"12/1/1", "12/1/2"})

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if sink.count() != 1 {
		t.Fatalf("expected sink to receive exactly one dirty-tile message, got %d", sink.count())
	}
}

func TestNATSBus_EmptyURLLeavesPublishANoOp(t *testing.T) {
	sink := &syncSink{}
	bus := NewNATSBus(config.NATSConfig{}, sink)

	if err := bus.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bus.Shutdown(context.Background())

	bus.Publish([]string{"12/1/1"})
	time.Sleep(50 * time.Millisecond)

	if sink.count() != 0 {
		t.Errorf("expected no delivery with an unconfigured bus, got %d", sink.count())
	}
}

func TestNATSBus_ShutdownIsIdempotent(t *testing.T) {
	url := startEmbeddedNATS(t)
	bus := NewNATSBus(config.NATSConfig{URL: url}, &syncSink{})

	if err := bus.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	bus.Shutdown(context.Background())
	bus.Shutdown(context.Background())

	if bus.IsRunning() {
		t.Error("expected IsRunning to be false after Shutdown")
	}
}
