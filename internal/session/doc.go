// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package session owns one downstream subscriber connection end to end:
the read pump, the write pump, the subscribe/unsubscribe protocol, the
initial snapshot, heartbeat liveness, and inbound rate limiting.

# Protocol

Inbound messages are a closed tagged variant: subscribe, unsubscribe,
ping. Anything else is logged and ignored, never rejected with an error
payload — this system never sends error bodies to subscribers; protocol
violations simply produce no effect.

On subscribe, each newly-added tile (duplicates are a no-op) is recorded
in both the session's own set and the dispatcher's reverse index via the
SubscriptionIndex interface, then the store is queried synchronously for
that tile's current membership; a vessel_update is sent to this session
only, for every non-empty tile. This snapshot is the only path by which a
session learns of current state — there is no query endpoint.

# Heartbeat

Each session runs its own ping ticker at Config.HeartbeatInterval and
sets its read deadline to twice that interval, matching spec §5's "two
missed pings" timeout. A lapsed deadline and an explicit close both tear
the session down the same way: the read pump exits, which closes the
connection and signals the write pump.

# Outbound queue

Deliver is the dispatcher's only way to push a message to a session; it
never blocks. A full queue drops the oldest pending vessel_update to make
room — connected, subscribed, unsubscribed, and pong are never evicted,
since losing one of those would desynchronize the client's view of its
own subscription state.

# See Also

  - internal/dispatcher: the SubscriptionIndex implementation sessions
    subscribe into and are delivered from
  - internal/store: GetVesselsInTile, the snapshot read path
  - internal/config: SessionConfig
*/
package session
