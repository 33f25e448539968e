// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package batchsync

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/aistiles/internal/logging"
	"github.com/tomtom215/aistiles/internal/models"
)

const spoolKeyPrefix = "batch:"

// spooledBatch is the on-disk shape of one failed upsert batch awaiting
// retry.
type spooledBatch struct {
	ID        string                `json:"id"`
	Records   []models.VesselRecord `json:"records"`
	SpooledAt time.Time             `json:"spooled_at"`
	Attempts  int                   `json:"attempts"`
}

// retrySpool is a durable, on-disk queue of vessel batches that failed to
// upsert, backed by a dedicated BadgerDB instance separate from the
// durable store itself (so a DuckDB outage doesn't also take down the
// spool it's meant to protect against).
type retrySpool struct {
	db *badger.DB
}

// openRetrySpool opens (creating if necessary) the BadgerDB instance at
// dir. Logging is silenced per the teacher's WAL package convention,
// since Badger's own logger is noisy at info level.
func openRetrySpool(dir string) (*retrySpool, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("batchsync: open retry spool at %s: %w", dir, err)
	}
	return &retrySpool{db: db}, nil
}

// Close closes the underlying BadgerDB instance.
func (s *retrySpool) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Len reports the number of batches currently waiting in the spool.
func (s *retrySpool) Len() int {
	count := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(spoolKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Enqueue persists a failed batch for later retry.
func (s *retrySpool) Enqueue(records []models.VesselRecord) error {
	batch := spooledBatch{
		ID:        uuid.New().String(),
		Records:   records,
		SpooledAt: time.Now().UTC(),
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("batchsync: marshal spooled batch: %w", err)
	}

	key := []byte(spoolKeyPrefix + batch.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Drain invokes fn once per spooled batch, oldest first, removing each
// batch from the spool only when fn succeeds. The first failure stops
// the drain and leaves the remaining batches (including the failed one)
// in place for the next tick.
func (s *retrySpool) Drain(fn func(records []models.VesselRecord) error) error {
	var keys [][]byte
	var batches []spooledBatch

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(spoolKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var batch spooledBatch
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &batch)
			})
			if err != nil {
				logging.Warn().Err(err).Msg("failed to decode spooled batch, skipping")
				continue
			}
			keys = append(keys, append([]byte(nil), item.Key()...))
			batches = append(batches, batch)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batchsync: iterate retry spool: %w", err)
	}

	for i, batch := range batches {
		if err := fn(batch.Records); err != nil {
			return fmt.Errorf("batchsync: drain spooled batch %s: %w", batch.ID, err)
		}
		if delErr := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(keys[i])
		}); delErr != nil {
			logging.Warn().Str("batch_id", batch.ID).Err(delErr).Msg("failed to remove drained batch from spool")
		}
	}

	return nil
}
