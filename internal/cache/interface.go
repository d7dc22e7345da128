// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

// Package cache provides the recommendation cache backends and the bounded
// top-K heap used by neighbor selection.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Store is a byte-oriented TTL cache. Both the in-process Cache and the
// BadgerDB-backed BadgerStore implement it so the recommendation engine can
// switch backends through configuration.
//
// Usage:
//
//	store, err := cache.NewStore(cache.StoreConfig{Backend: "memory", TTL: 15 * time.Minute})
//	_ = store.Set(ctx, "recs:42", payload)
//	if data, ok, err := store.Get(ctx, "recs:42"); ok && err == nil {
//	    // decode data
//	}
type Store interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the store's default TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Purge removes every entry. Called after a batch swaps the neighbor table.
	Purge(ctx context.Context) error

	// Backend names the implementation for metrics labels.
	Backend() string

	// Close releases resources held by the store.
	Close() error
}

// StoreConfig selects and configures a Store.
type StoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string

	// TTL is the lifetime of each entry.
	TTL time.Duration

	// BadgerPath is the on-disk directory for the badger backend.
	BadgerPath string

	// BadgerInMemory runs badger without touching disk (tests, ephemeral deployments).
	BadgerInMemory bool
}

// NewStore builds the Store described by cfg.
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}

	switch cfg.Backend {
	case "", BackendMemory:
		return New(cfg.TTL), nil
	case BackendBadger:
		store, err := OpenBadgerStore(cfg.BadgerPath, cfg.BadgerInMemory, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Backend names
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Verify interface implementations at compile time
var (
	_ Store = (*Cache)(nil)
	_ Store = (*BadgerStore)(nil)
)
