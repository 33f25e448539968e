// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package services

import (
	"context"
	"time"
)

// Sweeper interface matches the in-memory store's active-expiry sweep.
//
// This interface allows the SweepService to work with the store without
// importing internal/store, avoiding circular dependencies.
//
// Satisfied by *store.Store from internal/store/store.go.
type Sweeper interface {
	Sweep(now time.Time) (dirtyTiles []string)
}

// DirtyMarker receives the tiles a sweep found expired, so the dispatcher
// coalesces a departure the same way it coalesces an arrival.
//
// Satisfied by *dispatcher.Dispatcher from internal/dispatcher/dispatcher.go.
type DirtyMarker interface {
	MarkDirty(tiles []string)
}

// SweepService periodically calls Sweep on the in-memory store, ticking
// its own interval rather than sharing the dispatcher's or ingest client's.
// Expiry is independent of both: a vessel goes stale from silence, not
// from any inbound or outbound activity.
type SweepService struct {
	store    Sweeper
	dispatch DirtyMarker
	interval time.Duration
	name     string
}

// NewSweepService creates a new store-expiry sweep service wrapper.
func NewSweepService(store Sweeper, dispatch DirtyMarker, interval time.Duration) *SweepService {
	return &SweepService{
		store:    store,
		dispatch: dispatch,
		interval: interval,
		name:     "store-sweep",
	}
}

// Serve implements suture.Service.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if tiles := s.store.Sweep(now); len(tiles) > 0 {
				s.dispatch.MarkDirty(tiles)
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *SweepService) String() string {
	return s.name
}
