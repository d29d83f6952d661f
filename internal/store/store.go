// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

// Package store is the BadgerDB-backed persistence layer. It holds the
// credential singleton, the per-period report cache, and the audit log
// keyspace, all in one database under distinct key prefixes.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage.
const (
	credentialKeyPrefix = "credential:"
	cacheKeyPrefix      = "report_cache:"
)

var (
	// ErrNotConnected indicates no credential record exists for the
	// environment. The remote connection must be established first.
	ErrNotConnected = errors.New("no credential on file")

	// ErrCacheMiss indicates no cache entry exists for the period.
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrVersionConflict indicates a conditional credential write lost a
	// race with a concurrent refresh.
	ErrVersionConflict = errors.New("credential version conflict")
)

// Store wraps a BadgerDB instance.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database at path. An empty path selects
// in-memory storage, used by tests and development.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	// Badger's own logger is noisy at INFO; the store logs through
	// zerolog at the call sites instead.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying BadgerDB for sibling stores (audit log).
func (s *Store) DB() *badger.DB {
	return s.db
}

// Healthy reports whether the database is open and accepting reads.
func (s *Store) Healthy() bool {
	if s.db.IsClosed() {
		return false
	}
	return s.db.View(func(txn *badger.Txn) error { return nil }) == nil
}
