// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

//go:build !nats

package services

import (
	"context"
	"time"
)

// NATSComponentsRunner mirrors the nats-tagged build's interface so
// cmd/server can wire the event bus identically regardless of tag.
//
// Satisfied by the stub *eventbus.NATSBus from internal/eventbus/nats_stub.go.
type NATSComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// NATSComponentsService is a no-op-capable wrapper matching the
// nats-tagged build's type, so the supervisor tree always has something
// to add regardless of build tags.
type NATSComponentsService struct {
	components      NATSComponentsRunner
	shutdownTimeout time.Duration
	name            string
}

// NewNATSComponentsService creates the stub-build service wrapper.
func NewNATSComponentsService(components NATSComponentsRunner) *NATSComponentsService {
	return &NATSComponentsService{
		components:      components,
		shutdownTimeout: 10 * time.Second,
		name:            "nats-components",
	}
}

// Serve implements suture.Service. The stub bus's Start/Shutdown are
// both no-ops, so this just waits out the context like any other
// disabled-by-configuration service.
func (s *NATSComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.components.Shutdown(shutdownCtx)
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *NATSComponentsService) String() string {
	return s.name
}
