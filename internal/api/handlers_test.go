// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/aistiles/internal/models"
	"github.com/tomtom215/aistiles/internal/session"
)

type fakeStore struct {
	byTile map[string][]models.VesselRecord
}

func (f *fakeStore) GetVesselsInTile(tileKey string) []models.VesselRecord {
	return f.byTile[tileKey]
}

type fakeSubs struct{}

func (fakeSubs) Subscribe(string, *session.Session)   {}
func (fakeSubs) Unsubscribe(string, *session.Session) {}
func (fakeSubs) UnsubscribeAll(*session.Session)      {}

func testSessionConfig() session.Config {
	return session.Config{
		HeartbeatInterval:  time.Second,
		MaxSubscribedTiles: 100,
		InboundRateLimit:   100,
		InboundRateBurst:   100,
	}
}

func TestHandler_HealthzReportsOK(t *testing.T) {
	h := NewHandler(&fakeStore{}, fakeSubs{}, testSessionConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.Healthz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp healthzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
}

func TestHandler_WebSocketRefusesUpgradeDuringShutdown(t *testing.T) {
	h := NewHandler(&fakeStore{}, fakeSubs{}, testSessionConfig())
	h.shuttingDown.Store(true)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()

	h.WebSocket(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 during shutdown, got %d", w.Code)
	}
}

func TestHandler_HealthzReports503DuringShutdown(t *testing.T) {
	h := NewHandler(&fakeStore{}, fakeSubs{}, testSessionConfig())
	h.shuttingDown.Store(true)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.Healthz(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp healthzResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "shutting_down" {
		t.Errorf("expected status shutting_down, got %q", resp.Status)
	}
}

func TestHandler_BeginShutdownClosesLiveSessionsWithGoingAway(t *testing.T) {
	h := NewHandler(&fakeStore{}, fakeSubs{}, testSessionConfig())

	server := httptest.NewServer(http.HandlerFunc(h.WebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	var connected session.ConnectedMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("read connected message: %v", err)
	}

	h.BeginShutdown(0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected a close error, got %v", err)
	}
	if closeErr.Code != websocket.CloseGoingAway {
		t.Errorf("expected close code %d, got %d", websocket.CloseGoingAway, closeErr.Code)
	}

	if w := httptest.NewRecorder(); true {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		h.WebSocket(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected new upgrades to be refused after BeginShutdown, got %d", w.Code)
		}
	}
}

func TestHandler_WebSocketUpgradesAndConnects(t *testing.T) {
	h := NewHandler(&fakeStore{}, fakeSubs{}, testSessionConfig())

	server := httptest.NewServer(http.HandlerFunc(h.WebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	var msg session.ConnectedMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read connected message: %v", err)
	}
	if msg.Type != session.OutboundConnected {
		t.Errorf("expected connected message, got %q", msg.Type)
	}
}
