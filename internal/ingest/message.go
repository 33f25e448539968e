// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/aistiles/internal/models"
)

// subscriptionMessage is the first client→server message on the upstream
// feed, authenticating and narrowing the stream to position reports
// within an optional set of bounding boxes.
type subscriptionMessage struct {
	APIKey             string        `json:"APIKey"`
	FilterMessageTypes []string      `json:"FilterMessageTypes"`
	BoundingBoxes      [][][2]float64 `json:"BoundingBoxes,omitempty"`
}

// wireEnvelope is the shape of every inbound upstream message. Only
// PositionReport messages carry data this system cares about; everything
// else is ignored.
type wireEnvelope struct {
	MessageType string `json:"MessageType"`
	Message     struct {
		PositionReport *wirePositionReport `json:"PositionReport"`
	} `json:"Message"`
	MetaData wireMetaData `json:"MetaData"`
}

type wirePositionReport struct {
	UserID      *uint64  `json:"UserID"`
	Latitude    *float64 `json:"Latitude"`
	Longitude   *float64 `json:"Longitude"`
	Cog         *float64 `json:"Cog"`
	Sog         *float64 `json:"Sog"`
	TrueHeading *int     `json:"TrueHeading"`
}

type wireMetaData struct {
	MMSI      *uint64  `json:"MMSI"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	TimeUTC   string   `json:"time_utc"`
}

var (
	errMissingMMSI  = errors.New("ingest: position report missing MMSI")
	errMissingCoord = errors.New("ingest: position report missing lat/lon")
	errOutOfRange   = errors.New("ingest: coordinates out of range")
)

// parsePosition converts one accepted wire envelope into a normalized
// VesselPosition, following the fallback rules in spec §4.D: fields
// absent from PositionReport are filled in from the sibling MetaData
// block, and a missing timestamp defaults to now. Coordinates outside
// [-90,90]x[-180,180] and reports with no resolvable MMSI or coordinate
// are rejected; the caller drops these silently per §4.D/§7.
func parsePosition(env wireEnvelope, now time.Time) (models.VesselPosition, error) {
	pr := env.Message.PositionReport
	if pr == nil {
		pr = &wirePositionReport{}
	}
	meta := env.MetaData

	mmsi, ok := firstUint(pr.UserID, meta.MMSI)
	if !ok {
		return models.VesselPosition{}, errMissingMMSI
	}

	lat, latOK := firstFloat(pr.Latitude, meta.Latitude)
	lon, lonOK := firstFloat(pr.Longitude, meta.Longitude)
	if !latOK || !lonOK {
		return models.VesselPosition{}, errMissingCoord
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return models.VesselPosition{}, errOutOfRange
	}

	var heading *int
	if pr.TrueHeading != nil {
		h := *pr.TrueHeading
		if h != models.HeadingUnavailable {
			heading = &h
		}
	}

	ts := now
	if meta.TimeUTC != "" {
		if parsed, err := time.Parse(time.RFC3339, meta.TimeUTC); err == nil {
			ts = parsed
		}
	}

	return models.VesselPosition{
		MMSI:      mmsi,
		Lat:       lat,
		Lon:       lon,
		COG:       pr.Cog,
		SOG:       pr.Sog,
		Heading:   heading,
		Timestamp: ts,
	}, nil
}

func firstUint(vals ...*uint64) (uint64, bool) {
	for _, v := range vals {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func firstFloat(vals ...*float64) (float64, bool) {
	for _, v := range vals {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// parseBoundingBoxes parses the operator-facing "lat1,lon1,lat2,lon2;…"
// bounding-box filter string into the nested-array shape the upstream
// subscription message expects.
func parseBoundingBoxes(spec string) ([][][2]float64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var boxes [][][2]float64
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("ingest: bounding box %q must have 4 comma-separated values", part)
		}
		nums := make([]float64, 4)
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("ingest: bounding box %q: %w", part, err)
			}
			nums[i] = v
		}
		boxes = append(boxes, [][2]float64{{nums[0], nums[1]}, {nums[2], nums[3]}})
	}
	return boxes, nil
}
