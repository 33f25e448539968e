// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package tile implements the Web-Mercator slippy-map tiling math used to
// bucket vessels spatially. Every function here is pure and stateless;
// identical inputs MUST produce identical outputs across the codebase so
// that the tile key derived at ingest time matches the tile key a client
// computes for its own viewport.
package tile

import (
	"fmt"
	"math"
)

// MaxLatitude is the Web-Mercator projection's latitude limit. Latitudes
// beyond this clamp to it; the projection is undefined past this bound.
const MaxLatitude = 85.0511287798066

// Key returns the canonical "z/x/y" textual form of a tile coordinate.
func Key(z, x, y int) string {
	return fmt.Sprintf("%d/%d/%d", z, x, y)
}

// clampLatitude restricts lat to [-MaxLatitude, MaxLatitude].
func clampLatitude(lat float64) float64 {
	if lat > MaxLatitude {
		return MaxLatitude
	}
	if lat < -MaxLatitude {
		return -MaxLatitude
	}
	return lat
}

// normalizeLongitude maps lon into [-180, 180).
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Of computes the (x, y) tile coordinate for (lat, lon) at zoom z, clamping
// latitude to ±MaxLatitude and normalizing longitude into [-180, 180) first.
func Of(lat, lon float64, z int) (x, y int) {
	lat = clampLatitude(lat)
	lon = normalizeLongitude(lon)

	n := math.Exp2(float64(z))
	x = int(math.Floor((lon + 180) / 360 * n))

	latRad := lat * math.Pi / 180
	y = int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	maxIndex := int(n) - 1
	if x < 0 {
		x = 0
	} else if x > maxIndex {
		x = maxIndex
	}
	if y < 0 {
		y = 0
	} else if y > maxIndex {
		y = maxIndex
	}
	return x, y
}

// KeyOf computes the canonical tile key for (lat, lon) at zoom z.
func KeyOf(lat, lon float64, z int) string {
	x, y := Of(lat, lon, z)
	return Key(z, x, y)
}

// Bounds is an inclusive rectangle of tile coordinates at a fixed zoom.
type Bounds struct {
	Z          int
	MinX, MaxX int
	MinY, MaxY int
}

// Count returns the number of tiles covered by b.
func (b Bounds) Count() int {
	return (b.MaxX - b.MinX + 1) * (b.MaxY - b.MinY + 1)
}

// InBounds returns the rectangle of tiles covering the geographic box
// bounded by north/south latitude and east/west longitude, at zoom z.
// The caller is responsible for capping the returned Count() against any
// policy limit; this function performs no capping itself.
func InBounds(north, south, east, west float64, z int) Bounds {
	minX, maxY := Of(north, west, z)
	maxX, minY := Of(south, east, z)
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return Bounds{Z: z, MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
}

// Keys enumerates every tile key covered by b, row-major.
func (b Bounds) Keys() []string {
	keys := make([]string, 0, b.Count())
	for y := b.MinY; y <= b.MaxY; y++ {
		for x := b.MinX; x <= b.MaxX; x++ {
			keys = append(keys, Key(b.Z, x, y))
		}
	}
	return keys
}

// Z12Encode computes the durable-store's tile_z12 packed integer for a tile
// coordinate. This encoding assumes z == 12 and max(x, y) < 4096; it must
// not be reused for other zoom levels without generalizing to x*2^z + y.
func Z12Encode(x, y int) int64 {
	return int64(x)*4096 + int64(y)
}
