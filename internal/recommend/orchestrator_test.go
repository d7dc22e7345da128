// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestOrchestrator_Run(t *testing.T) {
	t.Parallel()

	ratings := append(fixtureRatings(), RawRating{ReaderID: 1, BookID: 50, Score: 9})
	store := newMemStore(ratings, fixtureBooks())
	store.nullRows = 2

	o := NewOrchestrator(testConfig(), store, zerolog.Nop())

	var hooks atomic.Int32
	o.OnSuccess(func(context.Context, BatchResult) { hooks.Add(1) })

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != BatchCompleted {
		t.Errorf("Status = %q, want %q", result.Status, BatchCompleted)
	}
	if result.RunID == "" {
		t.Error("RunID should be set")
	}
	if result.ReadersUpdated != 4 {
		t.Errorf("ReadersUpdated = %d, want 4", result.ReadersUpdated)
	}
	if result.EdgesEmitted != 3 {
		t.Errorf("EdgesEmitted = %d, want 3", result.EdgesEmitted)
	}
	if result.RecordsSkipped != 3 {
		t.Errorf("RecordsSkipped = %d, want 3 (2 NULL rows + 1 bad score)", result.RecordsSkipped)
	}
	if hooks.Load() != 1 {
		t.Errorf("OnSuccess called %d times, want 1", hooks.Load())
	}

	table := store.neighborSnapshot()
	if got := neighborIDs(table[1]); !equalInts(got, []int{2, 3}) {
		t.Errorf("neighbors of 1 = %v, want [2 3]", got)
	}
	if entries, ok := table[4]; !ok || len(entries) != 0 {
		t.Errorf("reader 4 should have an empty set, got %v (present=%v)", entries, ok)
	}

	status := o.Status()
	if status.State != StateIdle {
		t.Errorf("State = %q, want %q", status.State, StateIdle)
	}
	if status.LastSuccess == nil || status.LastSuccess.RunID != result.RunID {
		t.Errorf("LastSuccess = %+v, want run %s", status.LastSuccess, result.RunID)
	}

	runs := store.recordedRuns()
	if len(runs) != 1 || runs[0].Status != BatchCompleted {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func TestOrchestrator_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	store := newMemStore(fixtureRatings(), fixtureBooks())
	store.block = make(chan struct{})
	store.started = make(chan struct{})

	o := NewOrchestrator(testConfig(), store, zerolog.Nop())

	type outcome struct {
		result BatchResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := o.Run(context.Background())
		done <- outcome{r, err}
	}()

	<-store.started

	if st := o.Status(); st.State != StateRunningSimilarity || st.CurrentRunID == "" {
		t.Errorf("status during run = %+v", st)
	}

	result, err := o.Run(context.Background())
	if !errors.Is(err, ErrBatchAlreadyRunning) {
		t.Fatalf("second Run() error = %v, want ErrBatchAlreadyRunning", err)
	}
	if result.Status != BatchAlreadyRunning {
		t.Errorf("second Run() status = %q, want %q", result.Status, BatchAlreadyRunning)
	}

	close(store.block)
	first := <-done
	if first.err != nil || first.result.Status != BatchCompleted {
		t.Errorf("first Run() = %+v, %v", first.result, first.err)
	}

	if runs := store.recordedRuns(); len(runs) != 1 {
		t.Errorf("rejected run should not be recorded, got %d runs", len(runs))
	}
}

func TestOrchestrator_FailureKeepsPriorTable(t *testing.T) {
	t.Parallel()

	store := newMemStore(fixtureRatings(), fixtureBooks())
	o := NewOrchestrator(testConfig(), store, zerolog.Nop())

	good, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	before := store.neighborSnapshot()

	// Change the data so a successful run would change the table.
	store.ratings = append(store.ratings, rate(4, map[int]int{1: 5, 2: 4, 3: 1})...)
	store.replaceErr = errors.New("disk full")

	result, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should fail when persisting fails")
	}
	if result.Status != BatchFailed || !strings.Contains(result.Error, "disk full") {
		t.Errorf("result = %+v", result)
	}

	after := store.neighborSnapshot()
	if len(after) != len(before) {
		t.Fatalf("table changed size: %d -> %d", len(before), len(after))
	}
	for reader, entries := range before {
		if !equalInts(neighborIDs(after[reader]), neighborIDs(entries)) {
			t.Errorf("neighbors of %d changed: %v -> %v", reader, neighborIDs(entries), neighborIDs(after[reader]))
		}
	}

	status := o.Status()
	if status.State != StateFailed {
		t.Errorf("State = %q, want %q", status.State, StateFailed)
	}
	if status.LastSuccess == nil || status.LastSuccess.RunID != good.RunID {
		t.Errorf("LastSuccess should still be the first run")
	}
	if !strings.Contains(status.LastFailureErr, "persist") {
		t.Errorf("LastFailureErr = %q, want the failing stage named", status.LastFailureErr)
	}

	// The next run starts fresh from Failed.
	store.replaceErr = nil
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("third Run() error = %v", err)
	}
	if o.Status().State != StateIdle {
		t.Errorf("State = %q, want %q", o.Status().State, StateIdle)
	}
	if got := neighborIDs(store.neighborSnapshot()[4]); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("neighbors of 4 = %v, want [1 2 3]", got)
	}
}

func TestOrchestrator_LoadFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore(fixtureRatings(), fixtureBooks())
	store.streamErr = errors.New("connection refused")

	o := NewOrchestrator(testConfig(), store, zerolog.Nop())
	result, err := o.Run(context.Background())
	if err == nil || result.Status != BatchFailed {
		t.Fatalf("Run() = %+v, %v; want failure", result, err)
	}
	if !strings.Contains(err.Error(), "load") {
		t.Errorf("error %q should name the load stage", err)
	}

	runs := store.recordedRuns()
	if len(runs) != 1 || runs[0].Status != BatchFailed {
		t.Errorf("failed run should be recorded, got %+v", runs)
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	t.Parallel()

	store := newMemStore(fixtureRatings(), fixtureBooks())
	o := NewOrchestrator(testConfig(), store, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(store.neighborSnapshot()) != 0 {
		t.Error("cancelled run must not persist anything")
	}
}

func TestOrchestrator_MinReaders(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Similarity.MinReaders = 10

	store := newMemStore(fixtureRatings(), fixtureBooks())
	o := NewOrchestrator(cfg, store, zerolog.Nop())

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.EdgesEmitted != 0 {
		t.Errorf("EdgesEmitted = %d, want 0 below min_readers", result.EdgesEmitted)
	}
	for reader, entries := range store.neighborSnapshot() {
		if len(entries) != 0 {
			t.Errorf("reader %d has neighbors %v, want none", reader, neighborIDs(entries))
		}
	}
}

func TestOrchestrator_StartClaimsSlotSynchronously(t *testing.T) {
	t.Parallel()

	store := newMemStore(fixtureRatings(), fixtureBooks())
	store.block = make(chan struct{})
	store.started = make(chan struct{})

	o := NewOrchestrator(testConfig(), store, zerolog.Nop())

	finished := make(chan BatchResult, 1)
	accepted, err := o.Start(context.Background(), func(r BatchResult, _ error) { finished <- r })
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if accepted.RunID == "" {
		t.Error("accepted run should carry a RunID")
	}

	// No waiting for the goroutine: the slot is already taken.
	if st := o.Status(); !st.State.Running() || st.CurrentRunID != accepted.RunID {
		t.Errorf("status right after Start = %+v", st)
	}
	if _, err := o.Start(context.Background(), nil); !errors.Is(err, ErrBatchAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrBatchAlreadyRunning", err)
	}
	if _, err := o.Run(context.Background()); !errors.Is(err, ErrBatchAlreadyRunning) {
		t.Errorf("Run() during Start error = %v, want ErrBatchAlreadyRunning", err)
	}

	close(store.block)
	select {
	case r := <-finished:
		if r.Status != BatchCompleted || r.RunID != accepted.RunID {
			t.Errorf("finished run = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("started run did not finish")
	}

	// The slot is free again once done has been called.
	if _, err := o.Run(context.Background()); err != nil {
		t.Errorf("Run() after Start finished error = %v", err)
	}
}

// randomRatings draws a reproducible sparse snapshot.
func randomRatings(seed int64, readers, books int) []RawRating {
	rng := rand.New(rand.NewSource(seed))
	var out []RawRating
	for reader := 1; reader <= readers; reader++ {
		n := 8 + rng.Intn(20)
		for _, b := range rng.Perm(books)[:n] {
			out = append(out, RawRating{ReaderID: reader, BookID: b + 1, Score: 1 + rng.Intn(5)})
		}
	}
	return out
}

func TestOrchestrator_Idempotent(t *testing.T) {
	t.Parallel()

	ratings := randomRatings(7, 120, 60)

	runTable := func(workers int) map[int][]NeighborEntry {
		cfg := DefaultConfig()
		cfg.Similarity.MinOverlap = 3
		cfg.Similarity.NumWorkers = workers
		cfg.Neighbors.K = 15

		store := newMemStore(ratings, nil)
		o := NewOrchestrator(cfg, store, zerolog.Nop())
		if _, err := o.Run(context.Background()); err != nil {
			t.Fatalf("Run(workers=%d) error = %v", workers, err)
		}
		return store.neighborSnapshot()
	}

	first := runTable(8)
	second := runTable(8)
	single := runTable(1)

	nonEmpty := 0
	for _, set := range first {
		if len(set) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		t.Fatal("snapshot produced no neighbors; fixture is too sparse")
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same snapshot produced different neighbor tables")
	}
	if !reflect.DeepEqual(first, single) {
		t.Error("neighbor table depends on the worker count")
	}
}
