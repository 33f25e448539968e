// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package cache provides small, dependency-free data structures used to bound
memory and work in the ingest and dispatch paths.

# MinHeap

A generic min-heap keyed by timestamp, with O(log n) push/update and O(1)
peek. The in-memory vessel store uses it to find expired vessel records
without scanning the whole table:

	expiry := cache.NewMinHeap[string](0)
	expiry.Push(mmsi, mmsi, lastSeen.Add(ttl))
	...
	for _, e := range expiry.PopBefore(time.Now()) {
	    store.evict(e.Value)
	}

# BloomLRU / ExactLRU

Deduplication caches used on the ingest path to cheaply recognize a position
report the store has already applied this tick, before taking the store's
write lock. BloomLRU trades a small false-positive rate for O(1) space;
ExactLRU gives exact answers at the cost of bounded memory per entry.

# SlidingWindowCounter

A bucketed counter used to rate-limit inbound subscribe/unsubscribe traffic
per session without tracking individual timestamps.

# Thread Safety

All three types are safe for concurrent use; each guards its own state with
a mutex.
*/
package cache
