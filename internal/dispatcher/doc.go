// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package dispatcher implements component F: the reverse tile→subscriber
index and the periodic flush that turns dirty tiles into vessel_update
deliveries.

# Subscription index

subs maps a tile key to the set of sessions currently subscribed to it.
Sessions mutate this map through the session.SubscriptionIndex interface
on subscribe, unsubscribe, and close; the dispatcher never initiates a
subscription itself.

# Flush algorithm

Every FlushInterval tick, flush runs the two-step process from spec
§4.F:

 1. Atomically swap the dirty-tile set for a fresh empty one, so ingest
    and the store's TTL sweeper can keep marking tiles dirty without
    blocking on the flush in progress.
 2. For each drained tile, in sorted order: look up its subscriber set;
    skip tiles with no subscribers; read the tile's current membership
    once; build a single vessel_update and deliver it to every
    subscriber, in subscriber-ID order, best-effort.

Coalescing falls out of the dirty-set design for free: a tile marked
dirty ten times between two ticks still produces exactly one
vessel_update per subscriber, carrying the tile's membership as of flush
time. The spec makes no promise about cross-tile or cross-subscriber
delivery ordering; the sort here exists for determinism in tests, not
because subscribers observe or depend on it.

# See Also

  - internal/session: the Session type and the SubscriptionIndex contract
  - internal/store: GetVesselsInTile, the per-tick read path
  - internal/ingest: MarkDirty's other caller, via onDirtyTiles
*/
package dispatcher
