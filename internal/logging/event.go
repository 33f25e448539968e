// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

//go:build nats

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// EventLogger provides specialized logging for the optional NATS/Watermill
// dirty-tile bus, with domain-specific methods for the publish/subscribe
// lifecycle.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger creates a logger configured for event-bus processing.
func NewEventLogger() *EventLogger {
	return &EventLogger{
		logger: With().Str("component", "eventbus").Logger(),
	}
}

// NewEventLoggerWithLogger creates an EventLogger with a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value (copy-on-write semantics)
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{
		logger: logger.With().Str("component", "eventbus").Logger(),
	}
}

// WithFields returns a new EventLogger with additional default fields.
func (e *EventLogger) WithFields(fields map[string]interface{}) *EventLogger {
	ctx := e.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &EventLogger{logger: ctx.Logger()}
}

// Debug logs a debug message.
func (e *EventLogger) Debug(msg string, fields ...interface{}) {
	event := e.logger.Debug()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Info logs an info message.
func (e *EventLogger) Info(msg string, fields ...interface{}) {
	event := e.logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Warn logs a warning message.
func (e *EventLogger) Warn(msg string, fields ...interface{}) {
	event := e.logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Error logs an error message.
func (e *EventLogger) Error(msg string, fields ...interface{}) {
	event := e.logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// InfoContext logs an info message with context (correlation ID propagation).
func (e *EventLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// loggerWithContext returns a logger with context fields added.
func (e *EventLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	logCtx := e.logger.With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}

	return logCtx.Logger()
}

// addFieldPairs adds key-value pairs to a zerolog event.
func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			e = e.Interface(key, fields[i+1])
		}
	}
	return e
}

// ============================================================
// Domain-Specific Event Logging Methods
// ============================================================

// LogBatchPublished logs a dirty-tile batch published to the bus.
func (e *EventLogger) LogBatchPublished(ctx context.Context, subject string, tileCount int) {
	e.InfoContext(ctx, "dirty-tile batch published",
		"subject", subject,
		"tile_count", tileCount,
	)
}

// LogBatchReceived logs a dirty-tile batch received from the bus.
func (e *EventLogger) LogBatchReceived(ctx context.Context, subject string, tileCount int) {
	e.InfoContext(ctx, "dirty-tile batch received",
		"subject", subject,
		"tile_count", tileCount,
	)
}

// LogBatchFailed logs a publish or decode failure on the bus.
func (e *EventLogger) LogBatchFailed(ctx context.Context, subject string, err error) {
	logger := e.loggerWithContext(ctx)
	logger.Error().
		Str("subject", subject).
		Err(err).
		Msg("dirty-tile batch failed")
}

// LogSubscriptionStarted logs when a subscription is started.
func (e *EventLogger) LogSubscriptionStarted(subject, queue string) {
	e.Info("subscription started",
		"subject", subject,
		"queue", queue,
	)
}

// LogSubscriptionStopped logs when a subscription is stopped.
func (e *EventLogger) LogSubscriptionStopped(subject string) {
	e.Info("subscription stopped",
		"subject", subject,
	)
}
