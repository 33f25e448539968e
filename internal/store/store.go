// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package store implements the tile-indexed in-memory view of vessel
// state: a map of MMSI to VesselRecord, a reverse index of tile key to the
// set of MMSIs currently in that tile, and TTL-bounded expiry of both.
//
// The store is the only resource in the pipeline mutated by more than one
// actor: ingest writes through PutVessel, the dispatcher and batch
// synchronizer read through GetVesselsInTile and Scan, and sessions read
// through GetVesselsInTile on subscribe. All mutation goes through the
// single atomic PutVessel primitive; reads never block each other.
package store

import (
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/aistiles/internal/cache"
	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/models"
)

// Store is a TTL-bounded, tile-indexed table of the latest known state of
// every live vessel. The zero value is not usable; construct with New.
type Store struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock func() time.Time

	vessels  map[uint64]models.VesselRecord
	tileSets map[string]map[uint64]struct{}

	// expiry orders MMSIs by the deadline at which they become stale,
	// letting the sweeper find expired entries without scanning the
	// whole vessels map.
	expiry *cache.MinHeap[uint64]

	// scanCursor supports the batch synchronizer's incremental scan:
	// successive Scan calls resume from the MMSI after the last one
	// returned, wrapping around once the whole table has been visited.
	scanOrder  []uint64
	scanCursor int
}

// New constructs a Store with the given per-record TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		clock:    time.Now,
		vessels:  make(map[uint64]models.VesselRecord),
		tileSets: make(map[string]map[uint64]struct{}),
		expiry:   cache.NewMinHeap[uint64](0),
	}
}

// PutVessel atomically applies rec to the store, following the five-step
// update defined for the pipeline: capture the vessel's prior tile,
// overwrite its record, remove it from the old tile set if the tile
// changed, insert it into the new tile set, and refresh its TTL. It
// returns the vessel's previous tile (empty if this is a new vessel) and
// its new tile. All five steps happen under a single write lock, so no
// reader ever observes the vessel indexed in both, or neither, tile set.
func (s *Store) PutVessel(rec models.VesselRecord) (oldTile, newTile string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newTile = rec.Tile

	if old, ok := s.vessels[rec.MMSI]; ok {
		oldTile = old.Tile
	}

	s.vessels[rec.MMSI] = rec

	if oldTile != "" && oldTile != newTile {
		s.removeFromTileSetLocked(oldTile, rec.MMSI)
	}
	s.addToTileSetLocked(newTile, rec.MMSI)

	deadline := rec.Timestamp.Add(s.ttl)
	s.expiry.Push(strconv.FormatUint(rec.MMSI, 10), rec.MMSI, deadline)

	return oldTile, newTile
}

// GetVesselsInTile returns a consistent snapshot of every live vessel
// currently in tile T: the membership and the records are read under the
// same lock, so no putVessel racing concurrently can be observed as a
// vessel present in the set but missing from vessels (or vice versa).
// MMSIs whose record has separately expired between snapshot and read are
// silently dropped rather than surfaced as an error.
func (s *Store) GetVesselsInTile(tileKey string) []models.VesselRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.tileSets[tileKey]
	if len(members) == 0 {
		return nil
	}

	out := make([]models.VesselRecord, 0, len(members))
	now := s.clock()
	for mmsi := range members {
		rec, ok := s.vessels[mmsi]
		if !ok {
			continue
		}
		if now.Sub(rec.Timestamp) > s.ttl {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// SetClock overrides the store's notion of "now". Intended for tests that
// need deterministic control over TTL expiry.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Get returns the live record for mmsi, if any.
func (s *Store) Get(mmsi uint64) (models.VesselRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.vessels[mmsi]
	if !ok {
		return models.VesselRecord{}, false
	}
	if s.clock().Sub(rec.Timestamp) > s.ttl {
		return models.VesselRecord{}, false
	}
	return rec, true
}

// Len returns the number of live vessel records, without triggering a
// sweep. Expired-but-not-yet-swept entries are excluded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	n := 0
	for _, rec := range s.vessels {
		if now.Sub(rec.Timestamp) <= s.ttl {
			n++
		}
	}
	return n
}

// Sweep evicts every vessel record (and its tile-set membership) whose TTL
// has elapsed as of now. It returns the tile keys that lost a member,
// suitable for feeding into the dispatcher's dirty-tile set so subscribers
// learn about the depopulation. Callers should run this periodically; the
// store's read paths also self-correct for staleness in the interim.
func (s *Store) Sweep(now time.Time) (dirtyTiles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := s.expiry.PopBefore(now)
	if len(expired) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	for _, e := range expired {
		mmsi := e.Value
		rec, ok := s.vessels[mmsi]
		if !ok {
			continue
		}
		delete(s.vessels, mmsi)
		s.removeFromTileSetLocked(rec.Tile, mmsi)
		if _, ok := seen[rec.Tile]; !ok {
			seen[rec.Tile] = struct{}{}
			dirtyTiles = append(dirtyTiles, rec.Tile)
		}
	}

	if len(expired) > 0 {
		logging.Debug().Int("count", len(expired)).Msg("swept expired vessel records")
	}
	return dirtyTiles
}

// Scan returns up to limit live vessel records, resuming from where the
// previous call left off and wrapping around once the table has been
// fully visited. It backs the batch synchronizer's incremental durable
// sync, which is not required to complete a full pass within one tick.
func (s *Store) Scan(limit int) []models.VesselRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rebuildScanOrderIfNeededLocked()
	if len(s.scanOrder) == 0 {
		return nil
	}

	out := make([]models.VesselRecord, 0, limit)
	now := s.clock()
	visited := 0
	for visited < len(s.scanOrder) && len(out) < limit {
		mmsi := s.scanOrder[s.scanCursor]
		s.scanCursor = (s.scanCursor + 1) % len(s.scanOrder)
		visited++

		rec, ok := s.vessels[mmsi]
		if !ok || now.Sub(rec.Timestamp) > s.ttl {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// rebuildScanOrderIfNeededLocked refreshes the scan order snapshot when it has
// drifted too far from the live table (grown stale MMSIs, or shrunk).
// The scan doesn't need a perfectly fresh order every tick, only eventual
// coverage of the live set; rebuilding on size mismatch is enough.
func (s *Store) rebuildScanOrderIfNeededLocked() {
	if len(s.scanOrder) == len(s.vessels) {
		return
	}
	order := make([]uint64, 0, len(s.vessels))
	for mmsi := range s.vessels {
		order = append(order, mmsi)
	}
	s.scanOrder = order
	if s.scanCursor >= len(order) {
		s.scanCursor = 0
	}
}

func (s *Store) addToTileSetLocked(tileKey string, mmsi uint64) {
	set, ok := s.tileSets[tileKey]
	if !ok {
		set = make(map[uint64]struct{})
		s.tileSets[tileKey] = set
	}
	set[mmsi] = struct{}{}
}

func (s *Store) removeFromTileSetLocked(tileKey string, mmsi uint64) {
	set, ok := s.tileSets[tileKey]
	if !ok {
		return
	}
	delete(set, mmsi)
	if len(set) == 0 {
		delete(s.tileSets, tileKey)
	}
}

