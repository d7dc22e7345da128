// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfmates/internal/recommend"
)

// RecommendationService is the engine surface the handlers use.
// Satisfied by *recommend.Engine.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, readerID int, filters recommend.Filters, limit int) (*recommend.RecommendationList, error)
	ExplainRecommendation(ctx context.Context, readerID, bookID int) (*recommend.BookExplanation, error)
	GetSimilarReaders(ctx context.Context, readerID, limit int) ([]recommend.SimilarReader, error)
	RunSimilarityBatch(ctx context.Context) (recommend.BatchResult, error)
	// StartSimilarityBatch claims the run slot before returning and runs the
	// batch in the background, calling done when it finishes.
	StartSimilarityBatch(ctx context.Context, done func(recommend.BatchResult, error)) (recommend.BatchResult, error)
	Status() recommend.OrchestratorStatus
}

// BatchHistory lists past batch runs. Satisfied by *database.DB.
type BatchHistory interface {
	RecentBatchRuns(ctx context.Context, limit int) ([]recommend.BatchResult, error)
}

// HealthChecker reports storage health. Satisfied by *database.DB.
type HealthChecker interface {
	Ping(ctx context.Context) error
	BreakerState() string
}

// Handler holds the dependencies of the HTTP handlers.
//
// Handler methods are split across files:
//   - handlers_recommend.go: recommendations, explanations and neighbors
//   - handlers_batch.go: batch trigger, status and history
//   - handlers_health.go: probes
type Handler struct {
	engine    RecommendationService
	history   BatchHistory
	health    HealthChecker
	logger    zerolog.Logger
	version   string
	startTime time.Time

	// baseCtx parents background batch runs so they stop on shutdown.
	baseCtx context.Context
	// batches tracks background runs for Wait.
	batches sync.WaitGroup
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithBaseContext sets the context that background batch runs derive from.
func WithBaseContext(ctx context.Context) HandlerOption {
	return func(h *Handler) {
		if ctx != nil {
			h.baseCtx = ctx
		}
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) {
		h.version = version
	}
}

// NewHandler creates the API handler. history and health may be nil; the
// endpoints that need them then report the dependency as unavailable.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine RecommendationService, history BatchHistory, health HealthChecker, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:    engine,
		history:   history,
		health:    health,
		logger:    logger.With().Str("component", "api").Logger(),
		version:   "dev",
		startTime: time.Now(),
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait blocks until background batch runs started by TriggerBatch return.
func (h *Handler) Wait() {
	h.batches.Wait()
}
