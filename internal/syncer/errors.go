// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package syncer

import (
	"errors"
	"fmt"
)

// Kind classifies sync failures for callers and the HTTP layer.
type Kind string

const (
	// KindUnauthorized: the caller failed authorization.
	KindUnauthorized Kind = "unauthorized"

	// KindNotConnected: no credential on file; the remote connection
	// must be (re-)established by an admin.
	KindNotConnected Kind = "not_connected"

	// KindConfiguration: missing client secrets or similar operator
	// error. Fatal, never retried.
	KindConfiguration Kind = "configuration_error"

	// KindRefreshFailed: the remote token endpoint rejected the
	// refresh-token exchange. The stored credential is untouched.
	KindRefreshFailed Kind = "refresh_failed"

	// KindFetchFailed: one of the report calls failed. Error.Step names
	// which. No partial bundle is cached.
	KindFetchFailed Kind = "fetch_failed"

	// KindStorage: the persistence layer failed on read or write.
	KindStorage Kind = "storage_error"
)

// Error is a classified sync failure.
type Error struct {
	Kind Kind

	// Step is the failing fetch step for KindFetchFailed, empty otherwise.
	Step string

	// Msg is a human-readable summary safe to return to callers.
	Msg string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Step != "" && e.Err != nil:
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Step, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a classified error.
func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// newFetchError builds a KindFetchFailed error naming the failing step.
func newFetchError(step, msg string, err error) *Error {
	return &Error{Kind: KindFetchFailed, Step: step, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, or empty string for unclassified
// errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
