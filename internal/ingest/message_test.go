// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package ingest

import (
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func f(v float64) *float64 { return &v }
func u(v uint64) *uint64   { return &v }
func i(v int) *int         { return &v }

func TestParsePositionUsesPositionReportFields(t *testing.T) {
	env := wireEnvelope{}
	env.Message.PositionReport = &wirePositionReport{
		UserID:      u(111),
		Latitude:    f(22.3964),
		Longitude:   f(114.1095),
		Cog:         f(45),
		Sog:         f(12.3),
		TrueHeading: i(50),
	}
	env.MetaData = wireMetaData{TimeUTC: "2024-01-01T12:00:00Z"}

	pos, err := parsePosition(env, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.MMSI != 111 || pos.Lat != 22.3964 || pos.Lon != 114.1095 {
		t.Errorf("unexpected position: %+v", pos)
	}
	if pos.Heading == nil || *pos.Heading != 50 {
		t.Errorf("expected heading 50, got %v", pos.Heading)
	}
	want, _ := time.Parse(time.RFC3339, "2024-01-01T12:00:00Z")
	if !pos.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", pos.Timestamp, want)
	}
}

func TestParsePositionHeading511BecomesNil(t *testing.T) {
	env := wireEnvelope{}
	env.Message.PositionReport = &wirePositionReport{
		UserID:      u(1),
		Latitude:    f(0),
		Longitude:   f(0),
		TrueHeading: i(511),
	}

	pos, err := parsePosition(env, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Heading != nil {
		t.Errorf("expected nil heading for wire sentinel 511, got %d", *pos.Heading)
	}
}

func TestParsePositionFallsBackToMetaData(t *testing.T) {
	env := wireEnvelope{}
	env.Message.PositionReport = &wirePositionReport{}
	env.MetaData = wireMetaData{
		MMSI:      u(222),
		Latitude:  f(10),
		Longitude: f(20),
	}

	pos, err := parsePosition(env, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.MMSI != 222 || pos.Lat != 10 || pos.Lon != 20 {
		t.Errorf("expected fallback to MetaData, got %+v", pos)
	}
}

func TestParsePositionMissingMMSIRejected(t *testing.T) {
	env := wireEnvelope{}
	env.Message.PositionReport = &wirePositionReport{
		Latitude:  f(1),
		Longitude: f(1),
	}
	if _, err := parsePosition(env, time.Now()); err == nil {
		t.Error("expected error for missing MMSI")
	}
}

func TestParsePositionMissingCoordinatesRejected(t *testing.T) {
	env := wireEnvelope{}
	env.Message.PositionReport = &wirePositionReport{UserID: u(1)}
	if _, err := parsePosition(env, time.Now()); err == nil {
		t.Error("expected error for missing coordinates")
	}
}

func TestParsePositionOutOfRangeCoordinatesRejected(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"lat too high", 91, 0},
		{"lat too low", -91, 0},
		{"lon too high", 0, 181},
		{"lon too low", 0, -181},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := wireEnvelope{}
			env.Message.PositionReport = &wirePositionReport{
				UserID:    u(1),
				Latitude:  f(tt.lat),
				Longitude: f(tt.lon),
			}
			if _, err := parsePosition(env, time.Now()); err == nil {
				t.Errorf("expected rejection for lat=%f lon=%f", tt.lat, tt.lon)
			}
		})
	}
}

func TestParsePositionDefaultsTimestampToNow(t *testing.T) {
	env := wireEnvelope{}
	env.Message.PositionReport = &wirePositionReport{
		UserID:    u(1),
		Latitude:  f(1),
		Longitude: f(1),
	}
	now := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	pos, err := parsePosition(env, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", pos.Timestamp, now)
	}
}

func TestParsePositionRoundTripsThroughJSON(t *testing.T) {
	raw := `{
		"MessageType": "PositionReport",
		"Message": {
			"PositionReport": {
				"UserID": 366123456,
				"Latitude": 47.6,
				"Longitude": -122.3,
				"Cog": 90.5,
				"Sog": 5.2,
				"TrueHeading": 88
			}
		},
		"MetaData": {
			"MMSI": 366123456,
			"latitude": 47.6,
			"longitude": -122.3,
			"time_utc": "2026-08-02T00:00:00Z"
		}
	}`

	var env wireEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	pos, err := parsePosition(env, time.Now())
	if err != nil {
		t.Fatalf("parsePosition: %v", err)
	}
	if pos.MMSI != 366123456 {
		t.Errorf("mmsi = %d, want 366123456", pos.MMSI)
	}
}

func TestParseBoundingBoxes(t *testing.T) {
	t.Run("empty string yields nil", func(t *testing.T) {
		boxes, err := parseBoundingBoxes("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if boxes != nil {
			t.Errorf("expected nil, got %v", boxes)
		}
	})

	t.Run("single box", func(t *testing.T) {
		boxes, err := parseBoundingBoxes("1,2,3,4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := [][2]float64{{1, 2}, {3, 4}}
		if len(boxes) != 1 || !reflect.DeepEqual(boxes[0], want) {
			t.Errorf("got %v, want [%v]", boxes, want)
		}
	})

	t.Run("multiple boxes separated by semicolon", func(t *testing.T) {
		boxes, err := parseBoundingBoxes("1,2,3,4;5,6,7,8")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(boxes) != 2 {
			t.Fatalf("expected 2 boxes, got %d", len(boxes))
		}
	})

	t.Run("malformed box is an error", func(t *testing.T) {
		if _, err := parseBoundingBoxes("1,2,3"); err == nil {
			t.Error("expected error for a 3-field box")
		}
	})
}
