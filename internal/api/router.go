// AISTiles - Real-Time Vessel Tile Ingest, Dispatch, and Durable Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aistiles

// Package api wires the HTTP surface: the /ws upgrade endpoint,
// /healthz, and /metrics. Everything downstream-facing is read-only or
// a protocol upgrade; there is no REST CRUD surface, so the router
// stays a thin Chi mount.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/aistiles/internal/middleware"
)

// chiMiddleware adapts this project's func(http.HandlerFunc) http.HandlerFunc
// middleware to Chi's func(http.Handler) http.Handler, so the existing
// RequestID/PrometheusMetrics middleware can sit in r.Use() unchanged.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// CORSConfig configures the router's global CORS policy.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// DefaultCORSConfig returns a permissive default suitable for local
// development and public read-only dashboards consuming this feed.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		MaxAge:         300,
	}
}

// NewRouter builds the complete HTTP handler: global middleware stack,
// then /healthz, /metrics, and /ws.
func NewRouter(h *Handler, corsCfg CORSConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(middleware.Compression))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		MaxAge:         corsCfg.MaxAge,
	}))
	r.Use(httprate.LimitByRealIP(600, time.Minute))

	r.Get("/ws", h.WebSocket)

	// /healthz and /metrics are short-lived polls, unlike the long-lived
	// /ws upgrade, so only these two carry the in-memory slow-request
	// monitor: a /ws connection's lifetime would otherwise register as
	// an ever-slower single "request" for as long as the client stays
	// subscribed.
	perf := middleware.NewPerformanceMonitor(1000)
	r.Group(func(r chi.Router) {
		r.Use(perf.Middleware)
		r.Get("/healthz", h.Healthz)
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	})

	return r
}
