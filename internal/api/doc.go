// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

/*
Package api is the program's only inbound HTTP surface: it exists to
upgrade /ws connections into subscriber sessions and to expose
/healthz and /metrics for operators. It deliberately does not grow a
REST route table the way a CRUD-backed service would — there is
nothing here to query over plain HTTP; every piece of vessel state
flows to a client through its own live session.

# See Also

  - internal/session: what /ws hands off to once upgraded
  - internal/dispatcher: the session.SubscriptionIndex passed into Handler
  - internal/middleware: RequestID and PrometheusMetrics, adapted into
    Chi's middleware shape by chiMiddleware
*/
package api
