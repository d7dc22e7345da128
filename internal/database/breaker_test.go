// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package database

import (
	"context"
	"errors"
	"testing"
)

func TestGuardedRead_OpensAfterFailures(t *testing.T) {
	db := &DB{breaker: newReadBreaker("test-reads")}
	boom := errors.New("boom")

	for i := 0; i < 10; i++ {
		if _, err := guardedRead(db, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d error = %v, want %v", i, err, boom)
		}
	}

	if got := db.BreakerState(); got != "open" {
		t.Fatalf("BreakerState() = %q, want open", got)
	}

	called := false
	_, err := guardedRead(db, func() (int, error) {
		called = true
		return 1, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn ran while the circuit was open")
	}
}

func TestGuardedRead_CanceledIsNotFailure(t *testing.T) {
	db := &DB{breaker: newReadBreaker("test-canceled")}

	for i := 0; i < 20; i++ {
		_, _ = guardedRead(db, func() (int, error) { return 0, context.Canceled })
	}
	if got := db.BreakerState(); got != "closed" {
		t.Errorf("BreakerState() = %q, want closed", got)
	}

	v, err := guardedRead(db, func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("guardedRead() = (%q, %v), want (ok, nil)", v, err)
	}
}
