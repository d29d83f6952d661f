// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package books

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
)

// Report endpoint names on the remote service.
const (
	reportDailySummary  = "ProfitAndLoss"
	reportClassSummary  = "ProfitAndLossByClass"
	reportBalanceSheet  = "BalanceSheet"
	reportGeneralLedger = "GeneralLedger"
)

// GetReport fetches one report by name for the account, returning the raw
// payload. The date range and extra params are passed through verbatim.
func (c *Client) GetReport(ctx context.Context, accessToken, accountID, report string, params url.Values) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/v3/company/%s/reports/%s", c.cfg.BaseURL(), url.PathEscape(accountID), url.PathEscape(report))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.get(ctx, u, accessToken)
}

// DailySummary fetches the daily-granularity transaction summary for the
// date range (YYYY-MM-DD, inclusive).
func (c *Client) DailySummary(ctx context.Context, accessToken, accountID, start, end string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", end)
	params.Set("summarize_column_by", "Days")
	return c.GetReport(ctx, accessToken, accountID, reportDailySummary, params)
}

// ClassSummary fetches the category-segmented summary for the same range.
func (c *Client) ClassSummary(ctx context.Context, accessToken, accountID, start, end string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", end)
	params.Set("summarize_column_by", "Classes")
	return c.GetReport(ctx, accessToken, accountID, reportClassSummary, params)
}

// BalanceSheet fetches the point-in-time balance report as of end.
func (c *Client) BalanceSheet(ctx context.Context, accessToken, accountID, end string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("end_date", end)
	return c.GetReport(ctx, accessToken, accountID, reportBalanceSheet, params)
}

// GeneralLedger fetches sub-ledger detail for one remote account over the
// date range.
func (c *Client) GeneralLedger(ctx context.Context, accessToken, accountID, ledgerAccountID, start, end string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", end)
	params.Set("account", ledgerAccountID)
	return c.GetReport(ctx, accessToken, accountID, reportGeneralLedger, params)
}
