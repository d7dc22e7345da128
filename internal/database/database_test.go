// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/shelfmates/internal/config"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO calls
// from many in-memory databases can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

var testDBMutex sync.Mutex

// setupTestDB creates an in-memory database and closes it when the test ends.
// The semaphore is held for the whole test, not just creation.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s (DuckDB may be under resource pressure)")
		return nil
	}
}

// mustExec runs a raw statement for fixtures the typed writers refuse.
func mustExec(t *testing.T, db *DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.conn.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestNew_InitializesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	tables := []string{"readers", "books", "book_tropes", "ratings", "reader_neighbors", "batch_runs", "schema_migrations"}
	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			var n int
			err := db.conn.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&n)
			if err != nil {
				t.Fatalf("query information_schema: %v", err)
			}
			if n != 1 {
				t.Errorf("table %s missing", table)
			}
		})
	}
}

func TestMigrations_Applied(t *testing.T) {
	db := setupTestDB(t)

	version, err := db.GetCurrentSchemaVersion()
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	want := len(db.getMigrations())
	if version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}

	history, err := db.GetMigrationHistory()
	if err != nil {
		t.Fatalf("GetMigrationHistory() error = %v", err)
	}
	if len(history) != want {
		t.Errorf("migration history has %d entries, want %d", len(history), want)
	}

	// Re-running is a no-op.
	if err := db.runVersionedMigrations(); err != nil {
		t.Errorf("second runVersionedMigrations() error = %v", err)
	}
}

func TestEnsureContext(t *testing.T) {
	db := &DB{}

	ctx, cancel := db.ensureContext(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("ensureContext() did not add a deadline")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Minute)
	defer parentCancel()
	want, _ := parent.Deadline()
	ctx2, cancel2 := db.ensureContext(parent)
	defer cancel2()
	got, _ := ctx2.Deadline()
	if !got.Equal(want) {
		t.Errorf("ensureContext() replaced an existing deadline: got %v, want %v", got, want)
	}
}
