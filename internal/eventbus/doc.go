// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package eventbus implements the optional distributed dirty-tile bus:
when multiple instances of this program share one durable store, each
instance's ingest client only sees the tiles its own upstream feed
touched, so instances need a way to tell each other which tiles need a
fresh dispatcher flush.

# Build tags

NATSBus is only backed by a real NATS connection under the `nats` build
tag. A build without that tag gets a no-op stub with the same method
set, so cmd/server compiles and runs identically either way; a
single-instance deployment simply never needs the tag.

# Delivery semantics

Dirty-tile notifications are a coalescing hint, not an event log:
losing one only delays a flush elsewhere until the tile is next marked
dirty by any instance. This runs over core NATS publish/subscribe, not
JetStream — there is no state here worth paying a stream's durability
cost for.

# See Also

  - internal/dispatcher: the DirtyTileSink most deployments wire in
  - internal/supervisor/services: NATSComponentsService, the suture
    adapter wrapping Start/Shutdown/IsRunning
*/
package eventbus
