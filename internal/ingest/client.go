// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package ingest implements the upstream AIS feed client: it connects to
// the provider's streaming endpoint, subscribes to position reports,
// parses and validates each report, applies it to the in-memory store,
// and periodically flushes the set of tiles it touched to the dispatcher.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/aistiles/internal/cache"
	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/metrics"
	"github.com/tomtom215/aistiles/internal/models"
	"github.com/tomtom215/aistiles/internal/tile"
)

// dedupTTL bounds how long an identical position report is suppressed.
// The upstream feed occasionally rebroadcasts the same report from more
// than one receiver station within a few seconds of each other; anything
// older than this is a legitimate new report even if the coordinates
// happen to repeat.
const dedupTTL = 5 * time.Second

// State is a position in the ingest client's connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

const (
	initialBackoff = 1 * time.Second
	backoffFactor  = 1.5
	maxBackoff     = 30 * time.Second
)

// NextBackoff applies the reconnect backoff policy: multiply by 1.5,
// capped at 30s. Exposed standalone so the sequence (1s, 1.5s, 2.25s, …)
// can be tested without driving a real connection.
func NextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * backoffFactor)
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// VesselStore is the subset of the in-memory store the ingest client
// depends on. Defined here, not in package store, so unit tests can
// substitute a fake without dragging in the whole store package.
type VesselStore interface {
	PutVessel(models.VesselRecord) (oldTile, newTile string)
}

// Config configures an ingest Client.
type Config struct {
	URL           string
	APIKey        string
	BoundingBoxes string // operator-facing "lat1,lon1,lat2,lon2;…" filter
	TileZoom      int
	FlushInterval time.Duration
	DialTimeout   time.Duration
}

// Client is the upstream AIS ingest state machine described in spec §4.D.
type Client struct {
	cfg   Config
	store VesselStore

	// onDirtyTiles is invoked with the drained dirty-tile set on every
	// flush tick. It must not block for long; the dispatcher's own
	// intake should be a buffered channel or non-blocking send.
	onDirtyTiles func([]string)

	stateMu sync.RWMutex
	state   State

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	dedup *cache.ExactLRU

	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Client. onDirtyTiles receives the drained set of tile
// keys touched since the previous flush; it is called from the client's
// own goroutine on every FlushInterval tick.
func New(cfg Config, store VesselStore, onDirtyTiles func([]string)) *Client {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 1000 * time.Millisecond
	}
	if cfg.TileZoom <= 0 {
		cfg.TileZoom = 12
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Client{
		cfg:          cfg,
		store:        store,
		onDirtyTiles: onDirtyTiles,
		dirty:        make(map[string]struct{}),
		dedup:        cache.NewExactLRU(50000, dedupTTL),
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// State returns the client's current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Run drives the connect/subscribe/read/reconnect loop until ctx is
// canceled or Stop is called. It never returns until shutdown; callers
// typically run it in its own goroutine (or wrap it as a suture.Service).
func (c *Client) Run(ctx context.Context) error {
	c.wg.Add(1)
	defer c.wg.Done()

	c.wg.Add(1)
	go c.flushLoop(ctx)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			c.setState(Disconnected)
			return ctx.Err()
		case <-c.stopCh:
			c.setState(Disconnected)
			return nil
		default:
		}

		c.setState(Connecting)
		conn, err := c.connect(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("ingest: connect failed, backing off")
			c.setState(Disconnected)
			if !c.sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = NextBackoff(backoff)
			continue
		}

		backoff = initialBackoff
		c.setState(Subscribed)
		err = c.readLoop(ctx, conn)
		_ = conn.Close()
		c.setState(Disconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-c.stopCh:
			return nil
		default:
		}
		if err != nil {
			logging.Warn().Err(err).Msg("ingest: connection lost, reconnecting")
		}
		if !c.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = NextBackoff(backoff)
	}
}

// Stop signals the client to shut down and suppresses further reconnect
// attempts, per spec §4.D's "intentional shutdown suppresses reconnect".
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if _, err := url.Parse(c.cfg.URL); err != nil {
		return nil, fmt.Errorf("ingest: invalid upstream url: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: dial: %w", err)
	}

	boxes, err := parseBoundingBoxes(c.cfg.BoundingBoxes)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sub := subscriptionMessage{
		APIKey:             c.cfg.APIKey,
		FilterMessageTypes: []string{"PositionReport"},
		BoundingBoxes:      boxes,
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ingest: subscribe: %w", err)
	}

	logging.Info().Msg("ingest: subscribed to upstream feed")
	return conn, nil
}

// readLoop consumes inbound messages until the connection errors or
// closes. It returns nil only when the caller's context/stop channel
// ends the loop from outside; any I/O error is returned to the caller so
// Run can log and reconnect.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var env wireEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			logging.Debug().Err(err).Msg("ingest: dropping malformed message")
			continue
		}
		if env.Message.PositionReport == nil {
			continue
		}

		pos, err := parsePosition(env, c.now())
		if err != nil {
			logging.Debug().Err(err).Msg("ingest: dropping invalid position report")
			continue
		}
		if c.dedup.IsDuplicate(dedupKey(pos)) {
			metrics.RecordIngestDropped("duplicate")
			continue
		}

		c.apply(pos)
	}
}

// dedupKey identifies a position report by everything that would make two
// reports for the same vessel indistinguishable on the wire: MMSI, exact
// coordinates, and timestamp. Two genuinely different reports arriving with
// the same timestamp but different coordinates are not duplicates and get
// distinct keys.
func dedupKey(pos models.VesselPosition) string {
	return strconv.FormatUint(pos.MMSI, 10) + "|" +
		strconv.FormatFloat(pos.Lat, 'f', -1, 64) + "|" +
		strconv.FormatFloat(pos.Lon, 'f', -1, 64) + "|" +
		strconv.FormatInt(pos.Timestamp.UnixNano(), 10)
}

func (c *Client) apply(pos models.VesselPosition) {
	tileKey := tile.KeyOf(pos.Lat, pos.Lon, c.cfg.TileZoom)
	rec := models.VesselRecord{
		MMSI:      pos.MMSI,
		Lat:       pos.Lat,
		Lon:       pos.Lon,
		COG:       pos.COG,
		SOG:       pos.SOG,
		Heading:   pos.Heading,
		Timestamp: pos.Timestamp,
		Tile:      tileKey,
	}

	oldTile, newTile := c.store.PutVessel(rec)

	c.dirtyMu.Lock()
	if oldTile != "" {
		c.dirty[oldTile] = struct{}{}
	}
	c.dirty[newTile] = struct{}{}
	c.dirtyMu.Unlock()
}

func (c *Client) flushLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.flush()
		}
	}
}

func (c *Client) flush() {
	c.dirtyMu.Lock()
	if len(c.dirty) == 0 {
		c.dirtyMu.Unlock()
		return
	}
	drained := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		drained = append(drained, k)
	}
	c.dirty = make(map[string]struct{})
	c.dirtyMu.Unlock()

	if c.onDirtyTiles != nil {
		c.onDirtyTiles(drained)
	}
}
