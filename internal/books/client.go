// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package books is the HTTP client for the remote accounting service: the
// OAuth2 token endpoint and the environment-scoped report API. Report
// payloads pass through as opaque JSON; this package never interprets
// their contents beyond the balance-sheet account discovery walk.
//
// Resilience: every report request goes through a shared rate limiter
// (the remote has a strict request budget) and a circuit breaker that
// opens after sustained failures. No automatic retries; transient
// failures surface to the orchestrator.
package books

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/jmheld/booksync/internal/config"
)

// maxErrorBodySize caps the response body read for error reporting,
// preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client talks to the remote accounting service.
type Client struct {
	cfg        *config.BooksConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *requestBreaker
}

// NewClient creates a client for the configured environment.
func NewClient(cfg *config.BooksConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: newRequestBreaker("books-api"),
	}
}

// RequestError is a non-2xx response from the remote service.
type RequestError struct {
	// StatusCode is the HTTP status returned.
	StatusCode int

	// Body is the raw response body, capped at 64KB.
	Body []byte

	// URL is the request URL (query included, no credentials).
	URL string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("books api: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// get performs a rate-limited, breaker-protected GET and returns the
// response body. Non-2xx responses become *RequestError.
func (c *Client) get(ctx context.Context, url, bearerToken string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return c.breaker.execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+bearerToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("books api request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &RequestError{
				StatusCode: resp.StatusCode,
				Body:       readBodyForError(resp.Body),
				URL:        url,
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return body, nil
	})
}
