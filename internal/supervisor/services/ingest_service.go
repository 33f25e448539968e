// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

package services

import (
	"context"
)

// ContextRunner interface matches the upstream AIS feed client's Run
// method.
//
// This interface allows the IngestService to work with the ingest client
// without importing internal/ingest, avoiding circular dependencies.
//
// Satisfied by *ingest.Client from internal/ingest/client.go.
type ContextRunner interface {
	Run(ctx context.Context) error
}

// IngestService wraps the upstream AIS feed client as a supervised
// service.
//
// The client's Run method already implements the suture.Service pattern
// (dial, subscribe, reconnect with backoff, return on ctx.Done), so this
// wrapper simply delegates to it and provides a name for logging.
type IngestService struct {
	client ContextRunner
	name   string
}

// NewIngestService creates a new ingest client service wrapper.
func NewIngestService(client ContextRunner) *IngestService {
	return &IngestService{
		client: client,
		name:   "ingest-client",
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	return s.client.Run(ctx)
}

// String implements fmt.Stringer for logging.
func (s *IngestService) String() string {
	return s.name
}
