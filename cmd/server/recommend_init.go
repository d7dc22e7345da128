// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package main

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfmates/internal/cache"
	"github.com/tomtom215/shelfmates/internal/config"
	"github.com/tomtom215/shelfmates/internal/recommend"
	"github.com/tomtom215/shelfmates/internal/supervisor/services"
)

// buildEngineConfig maps application configuration onto the engine's.
func buildEngineConfig(cfg *config.Config) *recommend.Config {
	rc := cfg.Recommend

	workers := rc.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &recommend.Config{
		Similarity: recommend.SimilarityConfig{
			MinOverlap: rc.MinOverlap,
			Shrinkage:  rc.Shrinkage,
			Metric:     recommend.SimilarityMetric(rc.SimilarityMetric),
			NumWorkers: workers,
			MinReaders: rc.MinReaders,
		},
		Neighbors: recommend.NeighborConfig{
			K:             rc.Neighbors,
			MinSimilarity: rc.MinSimilarity,
		},
		Scoring: recommend.ScoringConfig{
			DiversityCapPerAuthor:          rc.DiversityCapPerAuthor,
			MaxResults:                     rc.MaxResults,
			DefaultLimit:                   rc.DefaultLimit,
			MinNeighborsPerBook:            rc.MinNeighborsPerBook,
			ConfidenceNeighborSaturation:   rc.ConfidenceNeighborSaturation,
			ConfidenceSimilaritySaturation: rc.ConfidenceSimilaritySaturation,
		},
		Explain: recommend.ExplainConfig{
			HighRatingThreshold: rc.HighRatingThreshold,
			TopNeighbors:        rc.ExplainTopNeighbors,
			MaxSharedBooks:      rc.ExplainMaxSharedBooks,
		},
		Cache:        recommend.CacheConfig{Enabled: true},
		BatchTimeout: cfg.Batch.Timeout,
	}
}

// buildCacheStore opens the configured recommendation cache backend.
func buildCacheStore(cfg *config.Config) (cache.Store, error) {
	store, err := cache.NewStore(cache.StoreConfig{
		Backend:        cfg.Cache.Backend,
		TTL:            cfg.Cache.TTL,
		BadgerPath:     cfg.Cache.BadgerPath,
		BadgerInMemory: cfg.Cache.BadgerInMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("open recommendation cache: %w", err)
	}
	return store, nil
}

// newBatchScheduler returns the scheduled batch service, or nil when
// scheduling is disabled.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newBatchScheduler(cfg *config.Config, batcher services.SimilarityBatcher, logger zerolog.Logger) *services.BatchSchedulerService {
	if !cfg.Batch.Enabled {
		return nil
	}
	return services.NewBatchSchedulerService(batcher, services.BatchSchedulerConfig{
		RunOnStartup: cfg.Batch.RunOnStartup,
		Interval:     cfg.Batch.Interval,
	}, logger)
}
