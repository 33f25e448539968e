// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package session

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/metrics"
	"github.com/tomtom215/aistiles/internal/validation"
)

// readPump consumes inbound messages until the connection errors, closes,
// or the heartbeat deadline lapses. A missed pong is indistinguishable
// from any other read timeout here; both end the session the same way.
func (s *Session) readPump() {
	defer func() {
		s.Close(websocket.CloseAbnormalClosure, "")
		s.wg.Done()
	}()

	pongWait := 2 * s.cfg.HeartbeatInterval
	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Uint64("session_id", s.id).Msg("session read error")
			}
			return
		}

		if !s.limiter.Allow() {
			metrics.SessionRateLimitHits.Inc()
			s.violations.IncrementOne()
			if s.violations.Count() > maxViolations {
				metrics.SessionErrors.WithLabelValues("rate_limit_abuse").Inc()
				logging.Warn().Uint64("session_id", s.id).Msg("session: closing connection after repeated rate-limit violations")
				s.Close(websocket.ClosePolicyViolation, "")
				return
			}
			continue
		}

		var in InboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			metrics.SessionErrors.WithLabelValues("malformed_message").Inc()
			logging.Debug().Err(err).Uint64("session_id", s.id).Msg("session: dropping malformed inbound message")
			continue
		}
		if verr := validation.ValidateStruct(&in); verr != nil {
			metrics.SessionErrors.WithLabelValues("invalid_message").Inc()
			logging.Debug().Str("errors", verr.Error()).Uint64("session_id", s.id).Msg("session: dropping invalid inbound message")
			continue
		}

		switch in.Type {
		case InboundSubscribe:
			s.handleSubscribe(in.Tiles)
		case InboundUnsubscribe:
			s.handleUnsubscribe(in.Tiles)
		case InboundPing:
			s.enqueue(pongMessage)
		default:
			logging.Debug().Str("type", in.Type).Uint64("session_id", s.id).Msg("session: ignoring unknown inbound message type")
		}
	}
}

// writePump drains the outbound queue to the socket and sends a ping
// every HeartbeatInterval. It exits when the session is closed or a
// write fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		s.markClosed()
		s.wg.Done()
	}()

	for {
		select {
		case <-s.closeCh:
			return

		case <-s.outNotify:
			for _, msg := range s.drainQueue() {
				if !s.writeOne(msg) {
					return
				}
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeOne(msg interface{}) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		logging.Debug().Err(err).Uint64("session_id", s.id).Msg("session: write failed")
		return false
	}
	return true
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// handleSubscribe applies spec §4.E's subscribe contract: reserve each
// new tile against the session's own set, send the initial snapshot for
// each non-empty tile, and only then register with the dispatcher's
// index — in that order, per tile. Registering first would make the
// session visible to a concurrently running flush() tick before its own
// initial snapshot is enqueued, letting a tick-driven vessel_update
// race ahead of it; reading the snapshot and enqueuing it before
// Subscribe is called closes that window, since flush can only ever see
// a tile's subscriber after Subscribe's registration returns. Tiles
// already subscribed are a no-op; tiles beyond the aggregate cap are
// logged and dropped.
func (s *Session) handleSubscribe(tiles []string) {
	applied := s.reserveSubscriptions(tiles)
	if len(applied) == 0 {
		return
	}

	s.enqueue(newSubscribed(applied))
	for _, t := range applied {
		vessels := s.store.GetVesselsInTile(t)
		if len(vessels) > 0 {
			s.enqueue(newVesselUpdate(t, vessels))
		}
		s.subs.Subscribe(t, s)
	}
}

// reserveSubscriptions adds each new tile to the session's own
// subscribed set, honoring the per-session cap. It does not touch the
// dispatcher: that happens in handleSubscribe, per tile, only after that
// tile's initial snapshot has already been enqueued.
func (s *Session) reserveSubscriptions(tiles []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := make([]string, 0, len(tiles))
	for _, t := range tiles {
		if _, already := s.subscribed[t]; already {
			continue
		}
		if len(s.subscribed) >= s.cfg.MaxSubscribedTiles {
			logging.Warn().Uint64("session_id", s.id).Int("cap", s.cfg.MaxSubscribedTiles).Msg("session: subscribe cap exceeded, dropping excess tiles")
			break
		}
		s.subscribed[t] = struct{}{}
		applied = append(applied, t)
	}
	return applied
}

// handleUnsubscribe mirrors handleSubscribe's removal path: evict from
// the session's set and the dispatcher's reverse index, then ack with
// the tiles actually removed.
func (s *Session) handleUnsubscribe(tiles []string) {
	s.mu.Lock()
	removed := make([]string, 0, len(tiles))
	for _, t := range tiles {
		if _, ok := s.subscribed[t]; !ok {
			continue
		}
		delete(s.subscribed, t)
		removed = append(removed, t)
	}
	s.mu.Unlock()

	for _, t := range removed {
		s.subs.Unsubscribe(t, s)
	}
	if len(removed) > 0 {
		s.enqueue(newUnsubscribed(removed))
	}
}
