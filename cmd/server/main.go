// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package main is the entry point for the Booksync server.
//
// Booksync pulls financial report bundles from a remote accounting
// service on a business-day schedule and serves them from a local cache.
// Startup order: configuration (Koanf v2, layered defaults, YAML file
// and environment), zerolog, BadgerDB storage, the books API client,
// the sync pipeline, and finally the HTTP server. An optional in-process
// scheduler drives unattended syncs when sync.scheduler_enabled is set;
// deployments that prefer external cron post to /api/v1/sync with the
// shared sync secret instead.
//
// The server shuts down gracefully on SIGINT and SIGTERM: the listener
// drains in-flight requests, the scheduler stops, and the database is
// closed last so a sync commit in progress is never cut off mid-write.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmheld/booksync/internal/api"
	"github.com/jmheld/booksync/internal/audit"
	"github.com/jmheld/booksync/internal/auth"
	"github.com/jmheld/booksync/internal/books"
	"github.com/jmheld/booksync/internal/config"
	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/models"
	"github.com/jmheld/booksync/internal/store"
	"github.com/jmheld/booksync/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Books.Environment).
		Str("storage_path", cfg.Storage.Path).
		Bool("scheduler", cfg.Sync.SchedulerEnabled).
		Msg("Starting Booksync")

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	env := models.Environment(cfg.Books.Environment)
	client := books.NewClient(&cfg.Books)

	gate := syncer.NewGate(&cfg.Sync)
	credentials := syncer.NewCredentialManager(st, client, env, cfg.Sync.RefreshThreshold)
	fetcher := syncer.NewFetcher(client, cfg.Books.TrackedAccountPrefixes)
	auditStore := audit.NewBadgerStore(st.DB())
	orch := syncer.NewOrchestrator(gate, credentials, fetcher, st, auditStore)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}
	authmw := auth.NewMiddleware(jwtManager, cfg.Security.SyncSecret)

	handlers := api.NewHandlers(orch, st, auditStore)
	router := api.NewRouter(handlers, authmw, &cfg.Security)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedulerDone := make(chan struct{})
	if cfg.Sync.SchedulerEnabled {
		scheduler := syncer.NewScheduler(orch, cfg.Sync.SchedulerInterval)
		go func() {
			defer close(schedulerDone)
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Scheduler exited with error")
				stop()
			}
		}()
	} else {
		close(schedulerDone)
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logging.Warn().Msg("Scheduler did not stop within shutdown timeout")
	}

	logging.Info().Msg("Booksync stopped")
}
