// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/metrics"
	"github.com/jmheld/booksync/internal/models"
)

// GetCacheEntry reads the cache entry for a reporting period.
// Returns ErrCacheMiss when no sync has completed for the period.
func (s *Store) GetCacheEntry(ctx context.Context, period int) (*models.CacheEntry, error) {
	var entry models.CacheEntry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(period))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})

	switch {
	case errors.Is(err, ErrCacheMiss):
		metrics.CacheReads.WithLabelValues("miss").Inc()
		return nil, err
	case err != nil:
		metrics.CacheReads.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.CacheReads.WithLabelValues("hit").Inc()
	return &entry, nil
}

// PutCacheEntry upserts the cache entry for its period in a single atomic
// write. All bundle fields commit together; readers never observe a
// timestamp newer than the payloads beside it. The orchestrator always
// supplies a complete bundle, so no read-modify-write happens here.
func (s *Store) PutCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.CacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(entry.Period), data)
	})
	if err != nil {
		metrics.CacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("put cache entry: %w", err)
	}

	metrics.CacheWrites.WithLabelValues("ok").Inc()
	return nil
}

func cacheKey(period int) []byte {
	return []byte(cacheKeyPrefix + strconv.Itoa(period))
}
