// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package syncer

import (
	"context"
	"time"

	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/models"
)

// Scheduler drives unattended syncs at a fixed interval. Each tick runs
// the orchestrator with the synthetic scheduled identity; the gate
// decides whether the tick does any work, so a short interval is cheap.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration
}

// NewScheduler builds a scheduler around an orchestrator.
func NewScheduler(orch *Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{orch: orch, interval: interval}
}

// Run executes the tick loop until ctx is cancelled. The first sync runs
// immediately so a freshly started instance does not wait one full
// interval. Tick failures are logged and the loop continues; errors of
// kind configuration_error stop the loop because retrying cannot help
// until an operator intervenes.
func (s *Scheduler) Run(ctx context.Context) error {
	logging.Logger().Info().
		Dur("interval", s.interval).
		Msg("sync scheduler started")

	if err := s.tick(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Logger().Info().Msg("sync scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	res, err := s.orch.Run(ctx, Request{Caller: models.ScheduledCaller()})
	if err != nil {
		if KindOf(err) == KindConfiguration {
			logging.Logger().Error().Err(err).Msg("scheduler halting on configuration error")
			return err
		}
		logging.Logger().Error().Err(err).Msg("scheduled sync failed")
		return nil
	}
	if res.Synced {
		logging.Logger().Info().
			Int("period", res.Period).
			Str("range_end", res.RangeEnd).
			Msg("scheduled sync committed")
	}
	return nil
}
