// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package api is the HTTP surface: chi routing, request decoding and the
// uniform response envelope consumed by dashboard clients.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/logging"
	"github.com/jmheld/booksync/internal/middleware"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	// Success is true for completed requests and for gate skips, which
	// are deliberately not failures.
	Success bool `json:"success"`

	// Data carries the payload, null on error.
	Data interface{} `json:"data,omitempty"`

	// Error carries failure details, null on success.
	Error *APIError `json:"error,omitempty"`

	// Meta carries tracing metadata.
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError is the failure half of the envelope.
type APIError struct {
	// Code is the machine-readable error kind.
	Code string `json:"code"`

	// Message is safe to show to an operator.
	Message string `json:"message"`

	// Details carries optional structured context, such as the failing
	// fetch step or per-field validation errors.
	Details interface{} `json:"details,omitempty"`
}

// APIMeta carries per-response tracing data.
type APIMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp APIResponse) {
	resp.Meta = &APIMeta{
		RequestID: middleware.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("response encoding failed")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, APIResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	respondJSON(w, r, status, APIResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}
