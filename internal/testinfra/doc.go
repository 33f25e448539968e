// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package testinfra provides test infrastructure helpers for integration testing.
//
// The durable store (DuckDB) is embedded and file-backed, so it never
// needs a container. The one component that talks to an external
// broker is internal/eventbus's NATS bus, and its container-backed test
// uses these helpers to skip gracefully when Docker is unavailable
// rather than failing the whole suite.
//
//	func TestNATSBus_AgainstRealContainer(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    // ... start a real nats:2-alpine container, run the bus against it
//	}
//
// # CI Considerations
//
// These tests are tagged with the integration build tag and require Docker.
// Self-hosted runners have Docker pre-installed; tests skip gracefully on
// environments without it.
package testinfra
