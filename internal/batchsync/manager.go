// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package batchsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/aistiles/internal/config"
	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/metrics"
	"github.com/tomtom215/aistiles/internal/models"
)

// Store is the subset of internal/store.Store the synchronizer reads
// from. Declared locally so this package doesn't import internal/store
// directly.
type Store interface {
	Scan(limit int) []models.VesselRecord
}

// DurableStore is the subset of internal/database.DB the synchronizer
// writes to.
type DurableStore interface {
	UpsertBatch(ctx context.Context, records []models.VesselRecord) error
}

// Manager runs the periodic store-to-durable-store sync ticker and owns
// the on-disk retry spool for batches the durable store rejected.
type Manager struct {
	store Store
	db    DurableStore
	cfg   *config.SyncConfig
	spool *retrySpool

	mu      sync.Mutex
	running bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager opens the retry spool at cfg.RetrySpoolDir and returns a
// Manager ready to Start.
func NewManager(store Store, db DurableStore, cfg *config.SyncConfig) (*Manager, error) {
	spool, err := openRetrySpool(cfg.RetrySpoolDir)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:    store,
		db:       db,
		cfg:      cfg,
		spool:    spool,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins the sync ticker loop and returns immediately. Matches the
// StartStopManager shape the supervisor's SyncService adapter expects.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("batchsync: manager already running")
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.syncLoop(ctx)

	logging.Info().Dur("interval", m.cfg.Interval).Int("batch_size", m.cfg.BatchSize).Msg("batch synchronizer started")
	return nil
}

// Stop signals the ticker loop to exit and waits for it, then closes the
// retry spool.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("batchsync: manager not running")
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()

	if err := m.spool.Close(); err != nil {
		return fmt.Errorf("batchsync: close retry spool: %w", err)
	}
	logging.Info().Msg("batch synchronizer stopped")
	return nil
}

// syncLoop ticks every cfg.Interval, draining the retry spool before
// pulling a fresh batch from the store.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			if err := m.tick(ctx); err != nil {
				logging.Error().Err(err).Msg("batch sync tick failed")
			}
		}
	}
}

// tick drains any previously-spooled batches, then scans and upserts one
// fresh batch from the store.
func (m *Manager) tick(ctx context.Context) error {
	start := time.Now()

	if err := m.spool.Drain(func(records []models.VesselRecord) error {
		return m.db.UpsertBatch(ctx, records)
	}); err != nil {
		logging.Warn().Err(err).Msg("retry spool drain stopped early")
	}

	defer func() { metrics.SyncRetrySpoolDepth.Set(float64(m.spool.Len())) }()

	records := m.store.Scan(m.cfg.BatchSize)
	if len(records) == 0 {
		metrics.RecordSyncOperation(time.Since(start), 0, nil)
		return nil
	}

	err := m.db.UpsertBatch(ctx, records)
	metrics.RecordSyncOperation(time.Since(start), len(records), err)

	if err != nil {
		if spoolErr := m.spool.Enqueue(records); spoolErr != nil {
			return fmt.Errorf("batchsync: upsert failed (%w) and spool enqueue failed: %v", err, spoolErr)
		}
		logging.Warn().Int("records", len(records)).Err(err).Msg("upsert failed, batch spooled for retry")
		return nil
	}

	return nil
}
