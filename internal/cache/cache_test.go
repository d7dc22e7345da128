// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets expiration tests run without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestCacheBasicOperations(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	if err := c.Set(ctx, "key1", []byte("value1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := c.Get(ctx, "key1")
	if err != nil || !ok {
		t.Fatalf("Get(key1) = _, %v, %v; want hit", ok, err)
	}
	if string(value) != "value1" {
		t.Errorf("Get(key1) = %q, want value1", value)
	}

	if _, ok, _ := c.Get(ctx, "key2"); ok {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, time.Minute)

	_ = c.Set(ctx, "key1", []byte("value1"))

	clock.Advance(59 * time.Second)
	if _, ok, _ := c.Get(ctx, "key1"); !ok {
		t.Error("Expected key1 to exist before TTL")
	}

	clock.Advance(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "key1"); ok {
		t.Error("Expected key1 to be expired")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestCacheSetWithTTLOverridesDefault(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, time.Hour)

	_ = c.SetWithTTL(ctx, "short", []byte("x"), time.Second)
	_ = c.Set(ctx, "long", []byte("y"))

	clock.Advance(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("short-lived entry should have expired")
	}
	if _, ok, _ := c.Get(ctx, "long"); !ok {
		t.Error("default-TTL entry should still exist")
	}
}

func TestCacheDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	for i := 0; i < 5; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}

	c.Delete("k0")
	if _, ok, _ := c.Get(ctx, "k0"); ok {
		t.Error("k0 should be deleted")
	}

	if err := c.Purge(ctx); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	for i := 1; i < 5; i++ {
		if _, ok, _ := c.Get(ctx, fmt.Sprintf("k%d", i)); ok {
			t.Errorf("k%d should be purged", i)
		}
	}

	stats := c.GetStats()
	if stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d, want 0", stats.TotalKeys)
	}
	if stats.Evictions != 5 {
		t.Errorf("Evictions = %d, want 5", stats.Evictions)
	}
}

func TestCacheCleanup(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, time.Minute)

	_ = c.Set(ctx, "old", []byte("1"))
	clock.Advance(30 * time.Second)
	_ = c.Set(ctx, "new", []byte("2"))
	clock.Advance(45 * time.Second)

	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys after cleanup = %d, want 1", stats.TotalKeys)
	}
	if _, ok, _ := c.Get(ctx, "new"); !ok {
		t.Error("unexpired entry should survive cleanup")
	}
}

func TestCacheHitRate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	if c.HitRate() != 0 {
		t.Errorf("HitRate() with no traffic = %v, want 0", c.HitRate())
	}

	_ = c.Set(ctx, "a", []byte("1"))
	c.Get(ctx, "a")
	c.Get(ctx, "a")
	c.Get(ctx, "a")
	c.Get(ctx, "missing")

	if got := c.HitRate(); got != 75 {
		t.Errorf("HitRate() = %v, want 75", got)
	}
}

func TestCacheConcurrency(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("g%d-%d", g, i%10)
				_ = c.Set(ctx, key, []byte("v"))
				c.Get(ctx, key)
				if i%50 == 0 {
					_ = c.Purge(ctx)
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		ReaderID int64
		SpiceMin *int
		Tropes   []string
	}
	spice := 2

	a := GenerateKey("recs", params{ReaderID: 7, SpiceMin: &spice, Tropes: []string{"fae"}})
	b := GenerateKey("recs", params{ReaderID: 7, SpiceMin: &spice, Tropes: []string{"fae"}})
	c := GenerateKey("recs", params{ReaderID: 8, SpiceMin: &spice, Tropes: []string{"fae"}})

	if a != b {
		t.Errorf("equal params produced different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different params produced the same key")
	}
	if len(a) != len("recs:")+32 {
		t.Errorf("key length = %d, want %d", len(a), len("recs:")+32)
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		backend string
		wantErr bool
	}{
		{"default is memory", StoreConfig{}, BackendMemory, false},
		{"memory", StoreConfig{Backend: "memory", TTL: time.Minute}, BackendMemory, false},
		{"in-memory badger", StoreConfig{Backend: "badger", BadgerInMemory: true}, BackendBadger, false},
		{"badger without path", StoreConfig{Backend: "badger"}, "", true},
		{"unknown", StoreConfig{Backend: "redis"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewStore() expected error")
				}
				if store != nil {
					t.Error("NewStore() should return a nil Store on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStore() error = %v", err)
			}
			defer store.Close()
			if store.Backend() != tt.backend {
				t.Errorf("Backend() = %q, want %q", store.Backend(), tt.backend)
			}
		})
	}
}
