// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

//go:build nats

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/aistiles/internal/config"
	"github.com/tomtom215/aistiles/internal/logging"
)

// DirtyTileSink receives tiles whose membership changed, whether marked
// dirty locally or forwarded in from another instance over NATS.
// Satisfied by *dispatcher.Dispatcher.
type DirtyTileSink interface {
	MarkDirty(tiles []string)
}

type dirtyTileEnvelope struct {
	Tiles []string `json:"tiles"`
}

// NATSBus fans dirty-tile notifications out across instances of this
// program. Every local MarkDirty call is published to cfg.Subject, and
// every message received on that subject is forwarded into sink's
// MarkDirty. Dirty-tile signals are a coalescing hint, not an event
// log: losing one only delays a flush elsewhere until the tile is next
// marked dirty, so this runs over core NATS publish/subscribe rather
// than JetStream — there is nothing here worth the durability cost of a
// stream.
type NATSBus struct {
	cfg  config.NATSConfig
	sink DirtyTileSink

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewNATSBus constructs a bus that connects to cfg.URL on Start.
func NewNATSBus(cfg config.NATSConfig, sink DirtyTileSink) *NATSBus {
	if cfg.Subject == "" {
		cfg.Subject = "aistiles.dirty-tiles"
	}
	return &NATSBus{cfg: cfg, sink: sink}
}

// Start connects to NATS and begins forwarding inbound dirty-tile
// messages into sink. A blank cfg.URL leaves the bus running but
// unconnected, so a single-instance deployment can compile with the
// nats build tag and simply never configure NATS_URL.
func (b *NATSBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	if b.cfg.URL == "" {
		logging.Info().Msg("eventbus: NATS_URL unset, dirty-tile bus disabled")
		b.running = true
		return nil
	}

	logger := watermill.NewStdLogger(false, false)
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         b.cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return fmt.Errorf("eventbus: create publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              b.cfg.URL,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return fmt.Errorf("eventbus: create subscriber: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	messages, err := sub.Subscribe(runCtx, b.cfg.Subject)
	if err != nil {
		cancel()
		_ = pub.Close()
		_ = sub.Close()
		return fmt.Errorf("eventbus: subscribe %q: %w", b.cfg.Subject, err)
	}

	b.publisher = pub
	b.subscriber = sub
	b.cancel = cancel
	b.running = true

	b.wg.Add(1)
	go b.consume(messages)

	logging.Info().Str("subject", b.cfg.Subject).Msg("eventbus: dirty-tile bus started")
	return nil
}

func (b *NATSBus) consume(messages <-chan *message.Message) {
	defer b.wg.Done()
	for msg := range messages {
		var env dirtyTileEnvelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			logging.Warn().Err(err).Msg("eventbus: malformed dirty-tile message")
			msg.Ack()
			continue
		}
		b.sink.MarkDirty(env.Tiles)
		msg.Ack()
	}
}

// Publish announces tiles as dirty to every other instance listening on
// cfg.Subject. A disabled or not-yet-started bus is a silent no-op: the
// caller has already applied MarkDirty to its own local dispatcher, so
// a failed or skipped publish only costs cross-instance visibility,
// never local state.
func (b *NATSBus) Publish(tiles []string) {
	if len(tiles) == 0 {
		return
	}
	b.mu.Lock()
	pub := b.publisher
	subject := b.cfg.Subject
	b.mu.Unlock()
	if pub == nil {
		return
	}

	payload, err := json.Marshal(dirtyTileEnvelope{Tiles: tiles})
	if err != nil {
		logging.Warn().Err(err).Msg("eventbus: failed to marshal dirty-tile message")
		return
	}
	if err := pub.Publish(subject, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		logging.Warn().Err(err).Msg("eventbus: publish failed")
	}
}

// Shutdown stops consuming and releases the NATS connection.
func (b *NATSBus) Shutdown(ctx context.Context) {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	cancel := b.cancel
	pub := b.publisher
	sub := b.subscriber
	b.publisher = nil
	b.subscriber = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		_ = sub.Close()
	}
	if pub != nil {
		_ = pub.Close()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	logging.Info().Msg("eventbus: dirty-tile bus stopped")
}

// IsRunning reports whether the bus has been started and not yet shut down.
func (b *NATSBus) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}
