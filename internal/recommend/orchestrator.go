// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/metrics"
)

// batchStore is the subset of Store the orchestrator writes through.
type batchStore interface {
	RatingSource
	NeighborStore
	BatchRunRecorder
}

// Orchestrator runs the similarity batch as an explicit state machine:
//
//	Idle -> RunningSimilarity -> RunningSelection -> Persisting -> Idle
//	                 \__________________\_________________\-----> Failed
//
// Only one run may be active. A concurrent Run is rejected with
// ErrBatchAlreadyRunning rather than queued. A failure at any stage leaves
// the persisted neighbor table untouched, and the next run starts fresh.
type Orchestrator struct {
	cfg    *Config
	store  batchStore
	sim    *SimilarityEngine
	logger zerolog.Logger
	now    func() time.Time

	// runMu is held for the whole run; TryLock gives reject-not-queue semantics.
	runMu sync.Mutex

	stateMu     sync.RWMutex
	state       BatchState
	currentRun  string
	lastResult  *BatchResult
	lastSuccess *BatchResult
	lastErr     string

	onSuccess []func(context.Context, BatchResult)
}

// NewOrchestrator creates an orchestrator in the Idle state.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(cfg *Config, store batchStore, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		store:  store,
		sim:    NewSimilarityEngine(cfg.Similarity),
		logger: logger,
		now:    time.Now,
		state:  StateIdle,
	}
}

// OnSuccess registers a hook called after every completed run.
// Hooks must be registered before the first Run.
func (o *Orchestrator) OnSuccess(fn func(context.Context, BatchResult)) {
	o.onSuccess = append(o.onSuccess, fn)
}

// Status returns a snapshot of the state machine.
func (o *Orchestrator) Status() OrchestratorStatus {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()

	st := OrchestratorStatus{
		State:          o.state,
		CurrentRunID:   o.currentRun,
		LastFailureErr: o.lastErr,
	}
	if o.lastResult != nil {
		r := *o.lastResult
		st.LastResult = &r
	}
	if o.lastSuccess != nil {
		r := *o.lastSuccess
		st.LastSuccess = &r
	}
	return st
}

func (o *Orchestrator) setState(s BatchState) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Run executes one similarity batch and blocks until it finishes.
func (o *Orchestrator) Run(ctx context.Context) (BatchResult, error) {
	run, err := o.begin(ctx)
	if err != nil {
		return BatchResult{Status: BatchAlreadyRunning}, err
	}
	defer run.release()
	return run.execute(run.ctx)
}

// Start claims the run slot and executes the batch in a new goroutine. The
// slot is taken before Start returns, so a second Start or Run issued right
// after it fails with ErrBatchAlreadyRunning. done, if non-nil, receives the
// outcome once the run finishes. The returned result carries the RunID and
// StartedAt of the accepted run.
func (o *Orchestrator) Start(ctx context.Context, done func(BatchResult, error)) (BatchResult, error) {
	run, err := o.begin(ctx)
	if err != nil {
		return BatchResult{Status: BatchAlreadyRunning}, err
	}
	accepted := run.result

	go func() {
		result, err := func() (BatchResult, error) {
			defer run.release()
			return run.execute(run.ctx)
		}()
		if done != nil {
			done(result, err)
		}
	}()

	return accepted, nil
}

// begin takes the run lock and moves the state machine out of Idle. The
// caller owns the returned run and must call release.
func (o *Orchestrator) begin(ctx context.Context) (*batchRun, error) {
	if !o.runMu.TryLock() {
		metrics.RecordBatchRun(string(BatchAlreadyRunning), 0, 0, 0)
		return nil, ErrBatchAlreadyRunning
	}

	run := &batchRun{
		o:      o,
		cancel: func() {},
		result: BatchResult{
			RunID:     uuid.New().String(),
			StartedAt: o.now(),
		},
	}
	if o.cfg.BatchTimeout > 0 {
		ctx, run.cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
	}
	run.ctx = logging.ContextWithRunID(ctx, run.result.RunID)
	run.logger = logging.FromContext(run.ctx, o.logger)

	o.stateMu.Lock()
	o.state = StateRunningSimilarity
	o.currentRun = run.result.RunID
	o.stateMu.Unlock()

	run.logger.Info().Msg("similarity batch started")
	return run, nil
}

// batchRun holds the per-run state so the stages stay small.
type batchRun struct {
	o      *Orchestrator
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
	result BatchResult
}

// release frees the run slot.
func (r *batchRun) release() {
	r.cancel()
	r.o.runMu.Unlock()
}

func (r *batchRun) execute(ctx context.Context) (BatchResult, error) {
	o := r.o

	// Stage 1: load the snapshot and compute similarities.
	o.setState(StateRunningSimilarity)
	m, err := r.loadMatrix(ctx)
	if err != nil {
		return r.fail(ctx, "load", err)
	}
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, "load", err)
	}

	selector := NewNeighborSelector(o.cfg.Neighbors)
	if o.cfg.Similarity.MinReaders > 0 && m.NumReaders() < o.cfg.Similarity.MinReaders {
		r.logger.Warn().
			Int("readers", m.NumReaders()).
			Int("min_readers", o.cfg.Similarity.MinReaders).
			Msg("reader base below minimum, skipping similarity computation")
	} else {
		start := time.Now()
		edges, err := selector.Consume(ctx, o.sim.Stream(ctx, m))
		metrics.RecordBatchStage("similarity", time.Since(start))
		if err == nil {
			// Workers stop early on cancellation, which also closes the channel.
			err = ctx.Err()
		}
		if err != nil {
			return r.fail(ctx, "similarity", err)
		}
		r.result.EdgesEmitted = edges
	}

	// Stage 2: finalize per-reader top-K sets.
	o.setState(StateRunningSelection)
	start := time.Now()
	sets := selector.Finalize(m.Readers())
	metrics.RecordBatchStage("selection", time.Since(start))
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, "selection", err)
	}

	// Stage 3: swap the neighbor table in one transaction.
	o.setState(StatePersisting)
	start = time.Now()
	updated, err := o.store.ReplaceNeighbors(ctx, r.result.RunID, sets, o.now())
	metrics.RecordBatchStage("persist", time.Since(start))
	if err != nil {
		return r.fail(ctx, "persist", err)
	}
	r.result.ReadersUpdated = updated

	return r.complete(ctx), nil
}

func (r *batchRun) loadMatrix(ctx context.Context) (*Matrix, error) {
	start := time.Now()
	builder := NewMatrixBuilder()

	skipped, err := r.o.store.StreamRatings(ctx, func(rr RawRating) error {
		builder.Add(rr)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream ratings: %w", err)
	}
	builder.Skip(skipped)

	m := builder.Build()
	r.result.RecordsSkipped = builder.Skipped()
	metrics.RecordSkippedRecords(r.result.RecordsSkipped)
	metrics.RecordBatchStage("load", time.Since(start))

	r.logger.Info().
		Int("readers", m.NumReaders()).
		Int("books", m.NumBooks()).
		Int("ratings", m.NumRatings()).
		Int("skipped", r.result.RecordsSkipped).
		Msg("rating snapshot loaded")

	return m, nil
}

func (r *batchRun) complete(ctx context.Context) BatchResult {
	o := r.o
	r.result.Status = BatchCompleted
	r.result.Duration = o.now().Sub(r.result.StartedAt)

	o.stateMu.Lock()
	o.state = StateIdle
	o.currentRun = ""
	res := r.result
	o.lastResult = &res
	success := r.result
	o.lastSuccess = &success
	o.lastErr = ""
	o.stateMu.Unlock()

	r.record(ctx)
	metrics.RecordBatchRun(string(BatchCompleted), r.result.ReadersUpdated, int(r.result.EdgesEmitted), r.result.Duration)

	for _, fn := range o.onSuccess {
		fn(ctx, r.result)
	}

	r.logger.Info().
		Int("readers_updated", r.result.ReadersUpdated).
		Int64("edges", r.result.EdgesEmitted).
		Int("skipped", r.result.RecordsSkipped).
		Dur("duration", r.result.Duration).
		Msg("similarity batch completed")

	return r.result
}

func (r *batchRun) fail(ctx context.Context, stage string, cause error) (BatchResult, error) {
	o := r.o
	err := fmt.Errorf("similarity batch %s stage: %w", stage, cause)

	r.result.Status = BatchFailed
	r.result.Error = err.Error()
	r.result.Duration = o.now().Sub(r.result.StartedAt)

	o.stateMu.Lock()
	o.state = StateFailed
	o.currentRun = ""
	res := r.result
	o.lastResult = &res
	o.lastErr = r.result.Error
	o.stateMu.Unlock()

	r.record(ctx)
	metrics.RecordBatchRun(string(BatchFailed), 0, 0, r.result.Duration)

	r.logger.Error().Err(cause).Str("stage", stage).Msg("similarity batch failed, previous neighbor sets kept")

	return r.result, err
}

// record writes the run history. The run context may already be cancelled,
// so the write uses a detached context with its own deadline.
func (r *batchRun) record(ctx context.Context) {
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := r.o.store.RecordBatchRun(recCtx, r.result); err != nil {
		r.logger.Warn().Err(err).Msg("failed to record batch run history")
	}
}
