// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package session implements one downstream subscriber connection: the
// tile subscribe/unsubscribe protocol, the initial snapshot on subscribe,
// heartbeat-driven liveness, inbound rate limiting, and the bounded
// outbound queue described in spec §4.E.
package session

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/aistiles/internal/cache"
	"github.com/tomtom215/aistiles/internal/metrics"
	"github.com/tomtom215/aistiles/internal/models"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	// maxOutboundQueue bounds the per-session outbound backlog. Overflow
	// drops the oldest pending vessel_update; connected/subscribed/
	// unsubscribed/pong are never dropped.
	maxOutboundQueue = 256

	// violationWindow and maxViolations bound how many times a session
	// may trip the inbound rate limiter before readPump closes it outright.
	// The limiter itself only throttles; this catches a client that keeps
	// hammering the connection instead of backing off.
	violationWindow = 30 * time.Second
	maxViolations   = 50
)

// sessionIDCounter assigns deterministic, monotonically increasing
// client IDs, mirroring the teacher's client ID scheme.
var sessionIDCounter atomic.Uint64

// Store is the subset of the in-memory store a session needs to build
// the initial snapshot on subscribe.
type Store interface {
	GetVesselsInTile(tileKey string) []models.VesselRecord
}

// SubscriptionIndex is the subset of the dispatcher a session mutates on
// subscribe/unsubscribe and removes itself from on close. Declared here,
// not in package dispatcher, so the two packages don't import each other.
type SubscriptionIndex interface {
	Subscribe(tileKey string, sess *Session)
	Unsubscribe(tileKey string, sess *Session)
	UnsubscribeAll(sess *Session)
}

// Config configures a Session.
type Config struct {
	HeartbeatInterval  time.Duration
	MaxSubscribedTiles int
	InboundRateLimit   float64
	InboundRateBurst   int
}

// Session is one downstream WebSocket subscriber connection.
type Session struct {
	id   uint64
	conn *websocket.Conn
	cfg  Config

	store Store
	subs  SubscriptionIndex

	limiter    *rate.Limiter
	violations *cache.SlidingWindowCounter

	mu         sync.Mutex
	subscribed map[string]struct{}
	outQueue   []interface{}
	closed     bool

	outNotify chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once

	wg sync.WaitGroup
}

// New constructs a Session and assigns it a deterministic ID. Call Run to
// begin serving it; Run blocks until the connection closes.
func New(conn *websocket.Conn, store Store, subs SubscriptionIndex, cfg Config) *Session {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.MaxSubscribedTiles <= 0 {
		cfg.MaxSubscribedTiles = 1500
	}
	if cfg.InboundRateLimit <= 0 {
		cfg.InboundRateLimit = 20
	}
	if cfg.InboundRateBurst <= 0 {
		cfg.InboundRateBurst = 40
	}

	return &Session{
		id:         sessionIDCounter.Add(1),
		conn:       conn,
		cfg:        cfg,
		store:      store,
		subs:       subs,
		limiter:    rate.NewLimiter(rate.Limit(cfg.InboundRateLimit), cfg.InboundRateBurst),
		violations: cache.NewSlidingWindowCounter(violationWindow, 6),
		subscribed: make(map[string]struct{}),
		outNotify:  make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
	}
}

// ID returns the session's deterministic identifier, used both for
// dispatcher-side logging and the wire-level clientId.
func (s *Session) ID() uint64 {
	return s.id
}

// SubscribedTiles returns a snapshot of the tiles this session currently
// subscribes to. The dispatcher uses this on disconnect to remove the
// session from exactly the tiles it holds, rather than scanning its
// entire subscription index.
func (s *Session) SubscribedTiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tiles := make([]string, 0, len(s.subscribed))
	for t := range s.subscribed {
		tiles = append(tiles, t)
	}
	return tiles
}

// Run drives the read and write pumps until the connection closes, then
// removes the session from every tile it was subscribed to. It blocks
// until both pumps have exited.
func (s *Session) Run() {
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	s.enqueue(newConnected(clientIDString(s.id)))

	s.wg.Add(2)
	go s.writePump()
	go s.readPump()
	s.wg.Wait()

	s.subs.UnsubscribeAll(s)

	s.mu.Lock()
	n := len(s.subscribed)
	s.mu.Unlock()
	metrics.RecordSessionDisconnect(n)
}

// Close terminates the session's connection with the given close code and
// reason. Safe to call more than once and from any goroutine; the pumps'
// own teardown also routes through here.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = s.conn.Close()
	})
}

// Deliver hands msg to the session's outbound queue. It never blocks: a
// full queue drops the oldest pending vessel_update to make room, per
// spec §5's overflow policy. connected/subscribed/unsubscribed/pong are
// never subject to eviction.
func (s *Session) Deliver(msg interface{}) {
	s.enqueue(msg)
}

func (s *Session) enqueue(msg interface{}) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.outQueue) >= maxOutboundQueue {
		s.evictOldestUpdateLocked()
	}
	s.outQueue = append(s.outQueue, msg)
	s.mu.Unlock()

	select {
	case s.outNotify <- struct{}{}:
	default:
	}
}

// evictOldestUpdateLocked drops the oldest queued vessel_update message,
// if any, to make room for a new arrival. Called with s.mu held.
func (s *Session) evictOldestUpdateLocked() {
	for i, m := range s.outQueue {
		if _, ok := m.(VesselUpdateMessage); ok {
			s.outQueue = append(s.outQueue[:i], s.outQueue[i+1:]...)
			return
		}
	}
}

func (s *Session) drainQueue() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outQueue) == 0 {
		return nil
	}
	out := s.outQueue
	s.outQueue = nil
	return out
}

func clientIDString(id uint64) string {
	return "sess-" + strconv.FormatUint(id, 10)
}
