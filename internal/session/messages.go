// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package session

import "github.com/tomtom215/aistiles/internal/models"

// Inbound message types, per spec §4.E/§6.
const (
	InboundSubscribe   = "subscribe"
	InboundUnsubscribe = "unsubscribe"
	InboundPing        = "ping"
)

// Outbound message types.
const (
	OutboundConnected    = "connected"
	OutboundSubscribed   = "subscribed"
	OutboundUnsubscribed = "unsubscribed"
	OutboundVesselUpdate = "vessel_update"
	OutboundPong         = "pong"
)

// InboundMessage is the tagged-variant shape of every client→server
// message: subscribe/unsubscribe carry Tiles, ping carries neither.
// Unknown Type values are logged and ignored by the caller, never an
// error returned to the client.
type InboundMessage struct {
	Type  string   `json:"type" validate:"required,oneof=subscribe unsubscribe ping"`
	Tiles []string `json:"tiles,omitempty" validate:"omitempty,max=1500,dive,required"`
}

// ConnectedMessage acknowledges a new session with its assigned ID.
type ConnectedMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

// SubscriptionChangeMessage acknowledges a subscribe or unsubscribe
// request with the tiles that were actually applied.
type SubscriptionChangeMessage struct {
	Type    string   `json:"type"`
	Tiles   []string `json:"tiles"`
	Message string   `json:"message"`
}

// VesselUpdateMessage carries the current membership of one tile. An
// empty Vessels slice is a valid, meaningful signal that the tile has
// been depopulated, not an error.
type VesselUpdateMessage struct {
	Type    string                `json:"type"`
	Tile    string                `json:"tile"`
	Vessels []models.VesselRecord `json:"vessels"`
}

// PongMessage answers an inbound ping.
type PongMessage struct {
	Type string `json:"type"`
}

func newConnected(clientID string) ConnectedMessage {
	return ConnectedMessage{Type: OutboundConnected, ClientID: clientID, Message: "connected"}
}

func newSubscribed(tiles []string) SubscriptionChangeMessage {
	return SubscriptionChangeMessage{Type: OutboundSubscribed, Tiles: tiles, Message: "subscribed"}
}

func newUnsubscribed(tiles []string) SubscriptionChangeMessage {
	return SubscriptionChangeMessage{Type: OutboundUnsubscribed, Tiles: tiles, Message: "unsubscribed"}
}

func newVesselUpdate(tileKey string, vessels []models.VesselRecord) VesselUpdateMessage {
	if vessels == nil {
		vessels = []models.VesselRecord{}
	}
	return VesselUpdateMessage{Type: OutboundVesselUpdate, Tile: tileKey, Vessels: vessels}
}

var pongMessage = PongMessage{Type: OutboundPong}
