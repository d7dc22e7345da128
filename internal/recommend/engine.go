// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfmates/internal/cache"
	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/metrics"
)

// Note: This package has no dependency on the database package. The Store
// interface is implemented there and injected by main.

// Engine is the public surface of the recommendation system. It owns the
// batch orchestrator and serves recommendations and neighbor lists from the
// persisted neighbor table. It is safe for concurrent use.
type Engine struct {
	cfg    *Config
	logger zerolog.Logger
	store  Store
	cache  cache.Store
	scorer *Scorer
	orch   *Orchestrator
	now    func() time.Time
}

// NewEngine creates an engine. cacheStore may be nil, which disables caching.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, store Store, cacheStore cache.Store, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	logger = logger.With().Str("component", "recommend").Logger()
	if !cfg.Cache.Enabled {
		cacheStore = nil
	}

	e := &Engine{
		cfg:    cfg.Clone(),
		logger: logger,
		store:  store,
		cache:  cacheStore,
		scorer: NewScorer(cfg.Scoring, cfg.Explain),
		now:    time.Now,
	}
	e.orch = NewOrchestrator(e.cfg, store, logger)
	e.orch.OnSuccess(e.invalidateAfterBatch)

	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// RunSimilarityBatch recomputes every reader's neighbor set. A call made
// while a run is active returns ErrBatchAlreadyRunning immediately.
func (e *Engine) RunSimilarityBatch(ctx context.Context) (BatchResult, error) {
	return e.orch.Run(ctx)
}

// StartSimilarityBatch starts a batch in the background. It returns
// ErrBatchAlreadyRunning without starting anything when a run is active;
// otherwise the run slot is already held when it returns. done receives the
// outcome and may be nil.
func (e *Engine) StartSimilarityBatch(ctx context.Context, done func(BatchResult, error)) (BatchResult, error) {
	return e.orch.Start(ctx, done)
}

// Status reports the batch orchestrator state.
func (e *Engine) Status() OrchestratorStatus {
	return e.orch.Status()
}

// GetNeighbors returns up to limit persisted neighbors in rank order.
// limit <= 0 or above K is clamped to K.
func (e *Engine) GetNeighbors(ctx context.Context, readerID, limit int) ([]NeighborEntry, error) {
	if readerID <= 0 {
		return nil, ErrInvalidReaderID
	}
	if limit <= 0 || limit > e.cfg.Neighbors.K {
		limit = e.cfg.Neighbors.K
	}

	neighbors, err := e.store.GetNeighbors(ctx, readerID, limit)
	if err != nil {
		return nil, fmt.Errorf("get neighbors: %w", err)
	}
	if neighbors == nil {
		neighbors = []NeighborEntry{}
	}
	return neighbors, nil
}

// GetSimilarReaders returns the persisted neighbors of readerID, each with
// the titles both readers rated at or above the high-rating threshold.
func (e *Engine) GetSimilarReaders(ctx context.Context, readerID, limit int) ([]SimilarReader, error) {
	neighbors, err := e.GetNeighbors(ctx, readerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SimilarReader, 0, len(neighbors))
	if len(neighbors) == 0 {
		return out, nil
	}

	ratings, err := e.store.ReaderRatings(ctx, readerID)
	if err != nil {
		return nil, fmt.Errorf("reader ratings: %w", err)
	}
	ids := make([]int, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.NeighborID
	}
	neighborRatings, err := e.store.RatingsForReaders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("neighbor ratings: %w", err)
	}

	books := map[int]BookMeta{}
	if loved := lovedBooks(ratings, e.cfg.Explain.HighRatingThreshold); len(loved) > 0 {
		if books, err = e.store.BookMetadata(ctx, loved); err != nil {
			return nil, fmt.Errorf("book metadata: %w", err)
		}
	}

	x := newExplainer(e.cfg.Explain, ratings, neighborRatings, books)
	for _, n := range neighbors {
		out = append(out, SimilarReader{NeighborEntry: n, SharedFavorites: x.favoritesWith(n.NeighborID)})
	}
	return out, nil
}

// ExplainRecommendation breaks down how bookID would score for readerID:
// the contributing neighbors, the favorites they share with the reader and
// the resulting prediction. It is computed from the same inputs as
// GetRecommendations but ignores filters and the per-author cap.
func (e *Engine) ExplainRecommendation(ctx context.Context, readerID, bookID int) (*BookExplanation, error) {
	if readerID <= 0 {
		return nil, ErrInvalidReaderID
	}
	if bookID <= 0 {
		return nil, ErrInvalidBookID
	}

	neighbors, err := e.store.GetNeighbors(ctx, readerID, e.cfg.Neighbors.K)
	if err != nil {
		return nil, fmt.Errorf("get neighbors: %w", err)
	}
	ratings, err := e.store.ReaderRatings(ctx, readerID)
	if err != nil {
		return nil, fmt.Errorf("reader ratings: %w", err)
	}

	ids := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		if n.AdjustedSimilarity > 0 && n.NeighborID != readerID {
			ids = append(ids, n.NeighborID)
		}
	}
	neighborRatings := map[int]map[int]int{}
	if len(ids) > 0 {
		if neighborRatings, err = e.store.RatingsForReaders(ctx, ids); err != nil {
			return nil, fmt.Errorf("neighbor ratings: %w", err)
		}
	}

	want := append(lovedBooks(ratings, e.cfg.Explain.HighRatingThreshold), bookID)
	books, err := e.store.BookMetadata(ctx, want)
	if err != nil {
		return nil, fmt.Errorf("book metadata: %w", err)
	}
	if _, ok := books[bookID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrBookNotFound, bookID)
	}

	return e.scorer.ScoreBook(ScoreInput{
		ReaderID:        readerID,
		Ratings:         ratings,
		Neighbors:       neighbors,
		NeighborRatings: neighborRatings,
		Books:           books,
	}, bookID), nil
}

// lovedBooks lists the books rated at or above threshold, ascending.
func lovedBooks(ratings map[int]int, threshold int) []int {
	ids := make([]int, 0, len(ratings))
	for bookID, score := range ratings {
		if score >= threshold {
			ids = append(ids, bookID)
		}
	}
	sort.Ints(ids)
	return ids
}

// recommendationKey is hashed into the cache key.
type recommendationKey struct {
	ReaderID int     `json:"reader_id"`
	Filters  Filters `json:"filters"`
	Limit    int     `json:"limit"`
}

// GetRecommendations scores unread Romantasy books for readerID from the
// persisted neighbor set. A reader without positive neighbors, or whose
// neighbors rated nothing that passes the filters, gets an empty list with
// StatusInsufficientData.
func (e *Engine) GetRecommendations(ctx context.Context, readerID int, filters Filters, limit int) (*RecommendationList, error) {
	start := time.Now()

	if readerID <= 0 {
		metrics.RecordRecommendation("invalid", time.Since(start))
		return nil, ErrInvalidReaderID
	}
	if err := filters.Validate(); err != nil {
		metrics.RecordRecommendation("invalid", time.Since(start))
		return nil, err
	}
	limit = e.cfg.EffectiveLimit(limit)

	logger := logging.FromContext(ctx, e.logger).With().Int("reader_id", readerID).Logger()

	key := cache.GenerateKey("recs", recommendationKey{ReaderID: readerID, Filters: filters, Limit: limit})
	if list := e.cached(ctx, key, logger); list != nil {
		metrics.RecordRecommendation("cache_hit", time.Since(start))
		return list, nil
	}

	list, err := e.compute(ctx, readerID, filters, limit)
	if err != nil {
		metrics.RecordRecommendation("error", time.Since(start))
		return nil, err
	}

	e.storeCache(ctx, key, list, logger)
	metrics.RecordRecommendation(string(list.Status), time.Since(start))

	logger.Debug().
		Str("status", string(list.Status)).
		Int("items", len(list.Items)).
		Dur("duration", time.Since(start)).
		Msg("recommendations generated")

	return list, nil
}

func (e *Engine) compute(ctx context.Context, readerID int, filters Filters, limit int) (*RecommendationList, error) {
	list := &RecommendationList{
		ReaderID:    readerID,
		Status:      StatusInsufficientData,
		Items:       []Recommendation{},
		GeneratedAt: e.now().UTC(),
	}

	neighbors, err := e.store.GetNeighbors(ctx, readerID, e.cfg.Neighbors.K)
	if err != nil {
		return nil, fmt.Errorf("get neighbors: %w", err)
	}

	ids := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		if n.AdjustedSimilarity > 0 && n.NeighborID != readerID {
			ids = append(ids, n.NeighborID)
		}
	}
	if len(ids) == 0 {
		return list, nil
	}

	ratings, err := e.store.ReaderRatings(ctx, readerID)
	if err != nil {
		return nil, fmt.Errorf("reader ratings: %w", err)
	}
	neighborRatings, err := e.store.RatingsForReaders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("neighbor ratings: %w", err)
	}

	candidates := CandidateBooks(readerID, ratings, neighbors, neighborRatings, e.cfg.Explain.HighRatingThreshold)
	if len(candidates) == 0 {
		return list, nil
	}
	books, err := e.store.BookMetadata(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("book metadata: %w", err)
	}

	items := e.scorer.Score(ScoreInput{
		ReaderID:        readerID,
		Ratings:         ratings,
		Neighbors:       neighbors,
		NeighborRatings: neighborRatings,
		Books:           books,
		Filters:         filters,
		Limit:           limit,
	})
	if len(items) > 0 {
		list.Status = StatusOK
		list.Items = items
	}
	return list, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) cached(ctx context.Context, key string, logger zerolog.Logger) *RecommendationList {
	if e.cache == nil {
		return nil
	}
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheResult(e.cache.Backend(), "error")
		logger.Warn().Err(err).Msg("recommendation cache read failed")
		return nil
	}
	if !ok {
		metrics.RecordCacheResult(e.cache.Backend(), "miss")
		return nil
	}

	var list RecommendationList
	if err := json.Unmarshal(data, &list); err != nil {
		metrics.RecordCacheResult(e.cache.Backend(), "error")
		logger.Warn().Err(err).Msg("discarding undecodable cache entry")
		return nil
	}
	metrics.RecordCacheResult(e.cache.Backend(), "hit")
	return &list
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) storeCache(ctx context.Context, key string, list *RecommendationList, logger zerolog.Logger) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(list)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode recommendations for cache")
		return
	}
	if err := e.cache.Set(ctx, key, data); err != nil {
		logger.Warn().Err(err).Msg("recommendation cache write failed")
	}
}

// InvalidateCache drops every cached recommendation list.
func (e *Engine) InvalidateCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Purge(ctx)
}

// invalidateAfterBatch runs after a neighbor table swap; cached lists were
// computed from the previous table.
func (e *Engine) invalidateAfterBatch(ctx context.Context, result BatchResult) {
	if err := e.InvalidateCache(ctx); err != nil {
		e.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("failed to purge recommendation cache after batch")
	}
}
