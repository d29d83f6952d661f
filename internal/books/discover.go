// Booksync - Accounting Report Sync and Cache Engine
// Copyright 2026 J. Held (jmheld)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmheld/booksync

package books

import (
	"strings"

	"github.com/goccy/go-json"
)

// LedgerAccount is a balance-sheet account selected for sub-ledger detail.
type LedgerAccount struct {
	ID   string
	Name string
}

// DiscoverTrackedAccounts walks a raw balance-sheet payload and returns
// the accounts whose display name starts with one of the tracked
// prefixes. This is the one place Booksync peeks inside a report payload;
// the walk is shallow and shape-tolerant because the remote owns the
// schema. An empty prefix list discovers nothing.
//
// The balance sheet nests rows arbitrarily deep; each leaf row carries a
// ColData array whose first cell holds the account name and, for real
// accounts, a remote account ID.
func DiscoverTrackedAccounts(balanceSheet json.RawMessage, prefixes []string) ([]LedgerAccount, error) {
	if len(prefixes) == 0 || len(balanceSheet) == 0 {
		return nil, nil
	}

	var root interface{}
	if err := json.Unmarshal(balanceSheet, &root); err != nil {
		return nil, err
	}

	var found []LedgerAccount
	seen := make(map[string]bool)
	walkRows(root, func(name, id string) {
		if id == "" || seen[id] {
			return
		}
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				seen[id] = true
				found = append(found, LedgerAccount{ID: id, Name: name})
				return
			}
		}
	})
	return found, nil
}

// walkRows visits every ColData leaf in the payload and reports the first
// cell's value and id.
func walkRows(node interface{}, visit func(name, id string)) {
	switch v := node.(type) {
	case map[string]interface{}:
		if cols, ok := v["ColData"].([]interface{}); ok && len(cols) > 0 {
			if cell, ok := cols[0].(map[string]interface{}); ok {
				name, _ := cell["value"].(string)
				id, _ := cell["id"].(string)
				if name != "" {
					visit(name, id)
				}
			}
		}
		for _, child := range v {
			walkRows(child, visit)
		}
	case []interface{}:
		for _, child := range v {
			walkRows(child, visit)
		}
	}
}
