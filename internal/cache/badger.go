// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// badgerKeyPrefix namespaces cache entries so Purge never touches other keys.
const badgerKeyPrefix = "shelfmates:cache:"

// BadgerStore implements Store on top of BadgerDB. Entries use badger's
// native TTL so expired values disappear without a sweep.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerStore opens (or creates) a badger database for caching.
// When inMemory is true, path is ignored and nothing touches disk.
func OpenBadgerStore(path string, inMemory bool, ttl time.Duration) (*BadgerStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			return nil, fmt.Errorf("badger cache path is required")
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	return NewBadgerStore(db, ttl), nil
}

// NewBadgerStore wraps an already-open badger database.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(badgerKeyPrefix+key), value).WithTTL(s.ttl)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set cache entry: %w", err)
		}
		return nil
	})
}

// Purge implements Store.
func (s *BadgerStore) Purge(_ context.Context) error {
	if err := s.db.DropPrefix([]byte(badgerKeyPrefix)); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

// Backend implements Store.
func (s *BadgerStore) Backend() string {
	return BackendBadger
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
