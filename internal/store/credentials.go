// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/jmheld/booksync/internal/models"
)

// GetCredential loads the credential singleton for an environment.
// Returns ErrNotConnected when no record exists.
func (s *Store) GetCredential(ctx context.Context, env models.Environment) (*models.CredentialRecord, error) {
	var rec models.CredentialRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(credentialKey(env))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotConnected
		}
		if err != nil {
			return fmt.Errorf("get credential: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveCredential persists a credential record conditionally: the write
// succeeds only if the stored record still carries expectedVersion (or no
// record exists and expectedVersion is zero). The record is persisted with
// Version = expectedVersion + 1.
//
// The token fields replace the stored ones atomically within one badger
// transaction; a losing writer gets ErrVersionConflict and must reload,
// which closes the concurrent-refresh race on the rotated refresh token.
func (s *Store) SaveCredential(ctx context.Context, rec *models.CredentialRecord, expectedVersion int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := credentialKey(rec.Environment)

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if expectedVersion != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return fmt.Errorf("read credential for conditional write: %w", err)
		default:
			var current models.CredentialRecord
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); verr != nil {
				return fmt.Errorf("decode stored credential: %w", verr)
			}
			if current.Version != expectedVersion {
				return ErrVersionConflict
			}
		}

		rec.Version = expectedVersion + 1
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal credential: %w", err)
		}
		return txn.Set(key, data)
	})
}

func credentialKey(env models.Environment) []byte {
	return []byte(credentialKeyPrefix + string(env))
}
