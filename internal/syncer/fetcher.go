// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/books"
	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/metrics"
	"github.com/jmheld/booksync/internal/models"
)

// Fetch step names, in execution order. StepLedgerDetail covers every
// per-account ledger call.
const (
	StepDailySummary = "daily_summary"
	StepClassSummary = "class_summary"
	StepBalanceSheet = "balance_sheet"
	StepLedgerDetail = "ledger_detail"
)

// reportClient is the slice of the books client the fetcher needs.
type reportClient interface {
	DailySummary(ctx context.Context, accessToken, accountID, start, end string) (json.RawMessage, error)
	ClassSummary(ctx context.Context, accessToken, accountID, start, end string) (json.RawMessage, error)
	BalanceSheet(ctx context.Context, accessToken, accountID, end string) (json.RawMessage, error)
	GeneralLedger(ctx context.Context, accessToken, accountID, ledgerAccountID, start, end string) (json.RawMessage, error)
}

// Fetcher retrieves the full report bundle for one date range. The
// four steps run sequentially and fail fast: a failed step aborts the
// run and nothing partial is returned, so the cache only ever sees
// complete bundles.
type Fetcher struct {
	client   reportClient
	prefixes []string
}

// NewFetcher builds a fetcher. prefixes selects which balance-sheet
// accounts get a per-account ledger fetch.
func NewFetcher(client reportClient, prefixes []string) *Fetcher {
	return &Fetcher{client: client, prefixes: prefixes}
}

// FetchAll runs the report sequence for [start, end] and returns the
// complete bundle. Payloads are stored as received; no step inspects a
// report body except the balance-sheet walk that discovers ledger
// accounts for the final step.
func (f *Fetcher) FetchAll(ctx context.Context, cred *models.CredentialRecord, start, end string) (*models.ReportBundle, error) {
	bundle := &models.ReportBundle{
		LedgerDetails: make(map[string]json.RawMessage),
	}

	daily, err := f.step(ctx, StepDailySummary, func() (json.RawMessage, error) {
		return f.client.DailySummary(ctx, cred.AccessToken, cred.AccountID, start, end)
	})
	if err != nil {
		return nil, err
	}
	bundle.DailyReport = daily

	class, err := f.step(ctx, StepClassSummary, func() (json.RawMessage, error) {
		return f.client.ClassSummary(ctx, cred.AccessToken, cred.AccountID, start, end)
	})
	if err != nil {
		return nil, err
	}
	bundle.ClassReport = class

	balance, err := f.step(ctx, StepBalanceSheet, func() (json.RawMessage, error) {
		return f.client.BalanceSheet(ctx, cred.AccessToken, cred.AccountID, end)
	})
	if err != nil {
		return nil, err
	}
	bundle.BalanceSheetReport = balance

	accounts, err := books.DiscoverTrackedAccounts(balance, f.prefixes)
	if err != nil {
		return nil, newFetchError(StepLedgerDetail, "discover ledger accounts from balance sheet", err)
	}

	for _, account := range accounts {
		detail, err := f.step(ctx, StepLedgerDetail, func() (json.RawMessage, error) {
			return f.client.GeneralLedger(ctx, cred.AccessToken, cred.AccountID, account.ID, start, end)
		})
		if err != nil {
			return nil, err
		}
		bundle.LedgerDetails[account.ID] = detail
	}

	logging.Ctx(ctx).Debug().
		Str("range_start", start).
		Str("range_end", end).
		Int("ledger_accounts", len(accounts)).
		Msg("report bundle fetched")
	return bundle, nil
}

// step wraps one fetch call with timing and error accounting.
func (f *Fetcher) step(ctx context.Context, name string, fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	started := time.Now()
	payload, err := fn()
	metrics.FetchDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.RecordFetchError(name, fetchStatus(err))
		return nil, newFetchError(name, "report fetch failed", err)
	}
	return payload, nil
}

// fetchStatus extracts the upstream HTTP status for metrics, 0 for
// transport-level failures.
func fetchStatus(err error) int {
	var reqErr *books.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
