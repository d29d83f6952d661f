// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmheld/booksync/internal/auth"
	"github.com/jmheld/booksync/internal/config"
	"github.com/jmheld/booksync/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handlers *Handlers
	authmw   *auth.Middleware
	cfg      *config.SecurityConfig
}

// NewRouter wires handlers and middleware into a router.
func NewRouter(handlers *Handlers, authmw *auth.Middleware, cfg *config.SecurityConfig) *Router {
	return &Router{handlers: handlers, authmw: authmw, cfg: cfg}
}

// Setup builds the chi handler tree.
//
// Health and metrics stay outside authentication so probes and scrapers
// need no tokens. Everything under /api/v1 requires a resolved caller;
// the audit endpoint additionally requires admin.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-Sync-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health/live", rt.handlers.HealthLive)
	r.Get("/health/ready", rt.handlers.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			rt.cfg.RateLimitReqs,
			rt.cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
		r.Use(rt.authmw.ResolveCaller)

		r.Post("/sync", rt.handlers.Sync)
		r.Get("/sync/status/{period}", rt.handlers.SyncStatus)
		r.Get("/reports/{period}", rt.handlers.Reports)

		r.With(auth.RequireAdmin).Get("/audit", rt.handlers.Audit)
	})

	return r
}
