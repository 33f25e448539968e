// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package models defines the data shapes shared across the ingest, store,
// dispatch, and durable-sync components.
package models

import "time"

// VesselRecord is the authoritative current-state snapshot for one vessel,
// keyed by MMSI. It is the unit stored in the in-memory store, mirrored to
// the durable store, and sent to subscribers in vessel_update messages.
type VesselRecord struct {
	MMSI      uint64    `json:"mmsi"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	COG       *float64  `json:"cog"`
	SOG       *float64  `json:"sog"`
	Heading   *int      `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
	Tile      string    `json:"tile"`
}

// VesselPosition is the normalized shape of one accepted upstream position
// report, before tile membership has been computed. Ingest parses the
// provider's wire format into this shape, then hands it to the store.
type VesselPosition struct {
	MMSI      uint64
	Lat       float64
	Lon       float64
	COG       *float64
	SOG       *float64
	Heading   *int
	Timestamp time.Time
}

// HeadingUnavailable is the wire sentinel meaning "no heading reported".
// It MUST be translated to a nil Heading before a position reaches the
// store; nothing downstream should ever see the raw value 511.
const HeadingUnavailable = 511
