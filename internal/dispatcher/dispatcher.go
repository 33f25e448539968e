// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package dispatcher implements component F: the tile subscription index
// and the periodic dirty-tile flush that fans vessel_update messages out
// to subscribers.
package dispatcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/aistiles/internal/config"
	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/metrics"
	"github.com/tomtom215/aistiles/internal/models"
	"github.com/tomtom215/aistiles/internal/session"
)

// Store is the subset of the in-memory store the dispatcher reads from
// on every flush tick.
type Store interface {
	GetVesselsInTile(tileKey string) []models.VesselRecord
}

// Dispatcher owns the tile subscription index (subs) and the dirty-tile
// set described in spec §4.F. It implements session.SubscriptionIndex so
// sessions can subscribe/unsubscribe directly against it, and exposes
// RunWithContext so it can be wrapped as a supervised service.
type Dispatcher struct {
	store Store
	cfg   config.DispatchConfig

	mu   sync.Mutex
	subs map[string]map[uint64]*session.Session

	dirtyMu sync.Mutex
	dirty   map[string]struct{}
}

// New constructs a Dispatcher reading vessel state from store.
func New(store Store, cfg config.DispatchConfig) *Dispatcher {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	return &Dispatcher{
		store: store,
		cfg:   cfg,
		subs:  make(map[string]map[uint64]*session.Session),
		dirty: make(map[string]struct{}),
	}
}

// Subscribe adds sess to tileKey's subscriber set. Implements
// session.SubscriptionIndex.
func (d *Dispatcher) Subscribe(tileKey string, sess *session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.subs[tileKey]
	if !ok {
		set = make(map[uint64]*session.Session)
		d.subs[tileKey] = set
	}
	set[sess.ID()] = sess
}

// Unsubscribe removes sess from tileKey's subscriber set, evicting the
// tile's entry entirely once it has no subscribers left. Implements
// session.SubscriptionIndex.
func (d *Dispatcher) Unsubscribe(tileKey string, sess *session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unsubscribeLocked(tileKey, sess)
}

func (d *Dispatcher) unsubscribeLocked(tileKey string, sess *session.Session) {
	set, ok := d.subs[tileKey]
	if !ok {
		return
	}
	delete(set, sess.ID())
	if len(set) == 0 {
		delete(d.subs, tileKey)
	}
}

// UnsubscribeAll removes sess from every tile it currently subscribes to,
// per spec §4.E's "on close the session removes itself from all tile
// subscriptions". Implements session.SubscriptionIndex.
func (d *Dispatcher) UnsubscribeAll(sess *session.Session) {
	tiles := sess.SubscribedTiles()

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range tiles {
		d.unsubscribeLocked(t, sess)
	}
}

// MarkDirty adds tiles to the dirty set, additively, ready to be drained
// on the next flush tick. Called by the ingest client after applying a
// batch of position reports, and by the store's TTL sweeper for tiles
// that lost a member.
func (d *Dispatcher) MarkDirty(tiles []string) {
	if len(tiles) == 0 {
		return
	}
	d.dirtyMu.Lock()
	for _, t := range tiles {
		d.dirty[t] = struct{}{}
	}
	d.dirtyMu.Unlock()
}

// RunWithContext runs the flush ticker until ctx is canceled, satisfying
// the ContextHub shape the supervisor's WebSocketHubService expects.
func (d *Dispatcher) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
			d.flush()
		}
	}
}

// flush implements spec §4.F's two-step tick: swap the dirty set for a
// fresh one, then for each drained tile look up its subscribers, read
// the tile's current membership once, and deliver one vessel_update to
// every subscriber. Tiles are visited in sorted order and subscribers
// within a tile in ID order, so runs are deterministic and reproducible
// in tests; the spec itself promises no cross-tile or cross-subscriber
// ordering.
func (d *Dispatcher) flush() {
	start := time.Now()

	tiles := d.swapDirty()
	if len(tiles) == 0 {
		metrics.RecordDispatchTick(time.Since(start), 0, 0)
		return
	}

	sent := 0
	for _, t := range tiles {
		subs := d.snapshotSubs(t)
		if len(subs) == 0 {
			continue
		}

		vessels := d.store.GetVesselsInTile(t)
		msg := session.VesselUpdateMessage{
			Type:    session.OutboundVesselUpdate,
			Tile:    t,
			Vessels: vessels,
		}
		if msg.Vessels == nil {
			msg.Vessels = []models.VesselRecord{}
		}

		for _, sess := range subs {
			sess.Deliver(msg)
			sent++
		}
	}

	metrics.RecordDispatchTick(time.Since(start), len(tiles), sent)
}

func (d *Dispatcher) swapDirty() []string {
	d.dirtyMu.Lock()
	if len(d.dirty) == 0 {
		d.dirtyMu.Unlock()
		return nil
	}
	drained := make([]string, 0, len(d.dirty))
	for t := range d.dirty {
		drained = append(drained, t)
	}
	d.dirty = make(map[string]struct{})
	d.dirtyMu.Unlock()

	sort.Strings(drained)
	return drained
}

func (d *Dispatcher) snapshotSubs(tileKey string) []*session.Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.subs[tileKey]
	if len(set) == 0 || !ok {
		return nil
	}
	out := make([]*session.Session, 0, len(set))
	for _, sess := range set {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SubscriberCount returns the number of distinct sessions subscribed to
// tileKey, for observability and tests.
func (d *Dispatcher) SubscriberCount(tileKey string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs[tileKey])
}
