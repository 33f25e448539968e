// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/session"
)

// Handler holds everything the HTTP surface needs: the dispatcher (also
// the session.SubscriptionIndex), the in-memory store, the session
// protocol config, the process start time for uptime reporting, and the
// live session registry the shutdown drain sequence walks.
type Handler struct {
	store      session.Store
	subs       session.SubscriptionIndex
	sessionCfg session.Config
	startedAt  time.Time

	shuttingDown atomic.Bool

	sessionsMu sync.Mutex
	sessions   map[uint64]*session.Session
}

// NewHandler constructs a Handler. store and subs are typically
// *store.Store and *dispatcher.Dispatcher respectively.
func NewHandler(store session.Store, subs session.SubscriptionIndex, sessionCfg session.Config) *Handler {
	return &Handler{
		store:      store,
		subs:       subs,
		sessionCfg: sessionCfg,
		startedAt:  time.Now(),
		sessions:   make(map[uint64]*session.Session),
	}
}

type healthzResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Healthz reports liveness. There is no dependency to probe here beyond
// the process itself: the in-memory store and dispatcher are in-process
// collaborators, not external services that can be independently down.
// It reports 503 once the shutdown drain window has opened, the same
// gate WebSocket checks, so a load balancer stops routing here as soon
// as new connections stop being accepted rather than only once the
// process actually exits.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.shuttingDown.Load() {
		status, code = "shutting_down", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthzResponse{
		Status: status,
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:   4096,
	WriteBufferSize:  4096,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// WebSocket upgrades the connection and runs a subscriber session until
// it closes. Subscribing is the only way in: there is no query
// parameter or initial payload this endpoint reads. Once a shutdown
// drain window is open, new upgrades are refused with 503 instead of
// ever touching the hijacked connection.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := session.New(conn, h.store, h.subs, h.sessionCfg)
	h.trackSession(sess)
	defer h.untrackSession(sess)

	sess.Run()
}

func (h *Handler) trackSession(sess *session.Session) {
	h.sessionsMu.Lock()
	h.sessions[sess.ID()] = sess
	h.sessionsMu.Unlock()
}

func (h *Handler) untrackSession(sess *session.Session) {
	h.sessionsMu.Lock()
	delete(h.sessions, sess.ID())
	h.sessionsMu.Unlock()
}

// BeginShutdown implements services.ShutdownNotifier. It flips the
// shutdown gate immediately, so
// WebSocket and Healthz both start returning 503 before anything else
// happens, waits out grace so sessions already connected can flush
// whatever is still queued for them, and then closes whatever sessions
// are still live with close code 1001, "server shutting down".
func (h *Handler) BeginShutdown(grace time.Duration) {
	h.shuttingDown.Store(true)

	if grace > 0 {
		time.Sleep(grace)
	}

	h.sessionsMu.Lock()
	live := make([]*session.Session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		live = append(live, sess)
	}
	h.sessionsMu.Unlock()

	for _, sess := range live {
		sess.Close(websocket.CloseGoingAway, "server shutting down")
	}
}
