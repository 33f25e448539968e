// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package tile

import (
	"testing"
)

func TestOf(t *testing.T) {
	t.Run("hong kong at zoom 12 matches the mercator formula", func(t *testing.T) {
		x, y := Of(22.3964, 114.1095, 12)
		if x != 3346 || y != 1786 {
			t.Errorf("Of(22.3964, 114.1095, 12) = (%d, %d), want (3346, 1786)", x, y)
		}
	})

	t.Run("origin at zoom 12", func(t *testing.T) {
		x, y := Of(0, 0, 12)
		if x != 2048 || y != 2048 {
			t.Errorf("Of(0, 0, 12) = (%d, %d), want (2048, 2048)", x, y)
		}
	})

	t.Run("longitude wraps to same column at the date line", func(t *testing.T) {
		xPos, yPos := Of(10, 180, 8)
		xNeg, yNeg := Of(10, -180, 8)
		if xPos != xNeg || yPos != yNeg {
			t.Errorf("Of(10, 180, 8) = (%d, %d), Of(10, -180, 8) = (%d, %d); want equal", xPos, yPos, xNeg, yNeg)
		}
	})

	t.Run("latitude beyond the mercator limit clamps", func(t *testing.T) {
		xExtreme, yExtreme := Of(MaxLatitude, 0, 8)
		xOver, yOver := Of(89.9, 0, 8)
		if xExtreme != xOver || yExtreme != yOver {
			t.Errorf("clamped result mismatch: (%d,%d) vs (%d,%d)", xExtreme, yExtreme, xOver, yOver)
		}
	})

	t.Run("negative latitude beyond the limit clamps", func(t *testing.T) {
		x1, y1 := Of(-MaxLatitude, 0, 8)
		x2, y2 := Of(-89.9, 0, 8)
		if x1 != x2 || y1 != y2 {
			t.Errorf("clamped result mismatch: (%d,%d) vs (%d,%d)", x1, y1, x2, y2)
		}
	})

	t.Run("stable under idempotent re-application", func(t *testing.T) {
		lat, lon := 37.7749, -122.4194
		for z := 0; z <= 18; z++ {
			x1, y1 := Of(lat, lon, z)
			x2, y2 := Of(lat, lon, z)
			if x1 != x2 || y1 != y2 {
				t.Fatalf("zoom %d: Of is not stable: (%d,%d) vs (%d,%d)", z, x1, y1, x2, y2)
			}
		}
	})
}

func TestKeyOf(t *testing.T) {
	got := KeyOf(22.3964, 114.1095, 12)
	want := "12/3346/1786"
	if got != want {
		t.Errorf("KeyOf(22.3964, 114.1095, 12) = %q, want %q", got, want)
	}
}

func TestVesselCrossingTileBoundaryChangesOnlyOneAxis(t *testing.T) {
	// Mirrors the spec's tile-transition scenario: a vessel moving from
	// (22.40, 114.11) to (22.41, 114.20) crosses into an adjacent column.
	t1 := KeyOf(22.40, 114.11, 12)
	t2 := KeyOf(22.41, 114.20, 12)
	if t1 == t2 {
		t.Fatalf("expected the move to cross a tile boundary, both landed in %q", t1)
	}
}

func TestHeadingSentinelTileFromSpecExample(t *testing.T) {
	// heading 511 at (0,0) lands in tile 12/2048/2048 per the literal spec example.
	got := KeyOf(0, 0, 12)
	want := "12/2048/2048"
	if got != want {
		t.Errorf("KeyOf(0, 0, 12) = %q, want %q", got, want)
	}
}

func TestKey(t *testing.T) {
	if got := Key(12, 3413, 1789); got != "12/3413/1789" {
		t.Errorf("Key(12, 3413, 1789) = %q, want %q", got, "12/3413/1789")
	}
}

func TestInBounds(t *testing.T) {
	t.Run("single point rectangle covers one tile", func(t *testing.T) {
		b := InBounds(22.40, 22.39, 114.11, 114.10, 12)
		if b.Count() < 1 {
			t.Errorf("expected at least one tile, got %d", b.Count())
		}
	})

	t.Run("count matches enumerated keys", func(t *testing.T) {
		b := InBounds(30, 20, 30, 20, 6)
		keys := b.Keys()
		if len(keys) != b.Count() {
			t.Errorf("len(Keys()) = %d, Count() = %d", len(keys), b.Count())
		}
	})

	t.Run("larger box yields more tiles than a smaller one", func(t *testing.T) {
		small := InBounds(1, 0, 1, 0, 10)
		large := InBounds(10, -10, 10, -10, 10)
		if large.Count() <= small.Count() {
			t.Errorf("expected large box to cover more tiles: large=%d small=%d", large.Count(), small.Count())
		}
	})
}

func TestZ12Encode(t *testing.T) {
	tests := []struct {
		x, y int
		want int64
	}{
		{0, 0, 0},
		{1, 0, 4096},
		{0, 1, 1},
		{3413, 1789, 3413*4096 + 1789},
		{4095, 4095, 4095*4096 + 4095},
	}
	for _, tt := range tests {
		if got := Z12Encode(tt.x, tt.y); got != tt.want {
			t.Errorf("Z12Encode(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}
