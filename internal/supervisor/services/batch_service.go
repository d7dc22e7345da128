// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shelfmates/internal/recommend"
)

// defaultBatchInterval applies when the configured interval is not positive.
const defaultBatchInterval = 24 * time.Hour

// SimilarityBatcher runs one similarity batch. Satisfied by *recommend.Engine.
type SimilarityBatcher interface {
	RunSimilarityBatch(ctx context.Context) (recommend.BatchResult, error)
}

// BatchSchedulerConfig holds the schedule of the similarity batch.
type BatchSchedulerConfig struct {
	// RunOnStartup triggers a batch as soon as the service starts.
	RunOnStartup bool

	// Interval is the time between scheduled batches. Default: 24h.
	Interval time.Duration
}

// BatchSchedulerService runs the similarity batch on a schedule under
// suture supervision. Batch failures are logged and never returned: the
// previous neighbor table stays valid, and restarting the service would
// only rerun the same failing batch.
type BatchSchedulerService struct {
	batcher SimilarityBatcher
	config  BatchSchedulerConfig
	logger  zerolog.Logger
	name    string
}

// NewBatchSchedulerService creates a new batch scheduler service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBatchSchedulerService(batcher SimilarityBatcher, cfg BatchSchedulerConfig, logger zerolog.Logger) *BatchSchedulerService {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultBatchInterval
	}
	return &BatchSchedulerService{
		batcher: batcher,
		config:  cfg,
		logger:  logger.With().Str("service", "batch-scheduler").Logger(),
		name:    "batch-scheduler",
	}
}

// Serve implements the suture.Service interface.
func (s *BatchSchedulerService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("batch scheduler starting")

	if s.config.RunOnStartup {
		s.run(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("batch scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.run(ctx, "schedule")
		}
	}
}

// run executes one batch and logs its outcome.
func (s *BatchSchedulerService) run(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}

	result, err := s.batcher.RunSimilarityBatch(ctx)
	switch {
	case errors.Is(err, recommend.ErrBatchAlreadyRunning):
		s.logger.Info().Str("trigger", trigger).Msg("similarity batch already running, skipping")
	case err != nil:
		s.logger.Warn().Err(err).
			Str("trigger", trigger).
			Str("run_id", result.RunID).
			Msg("similarity batch failed; previous neighbor table kept")
	default:
		s.logger.Info().
			Str("trigger", trigger).
			Str("run_id", result.RunID).
			Int("readers_updated", result.ReadersUpdated).
			Int64("edges_emitted", result.EdgesEmitted).
			Int("records_skipped", result.RecordsSkipped).
			Dur("duration", result.Duration).
			Msg("similarity batch completed")
	}
}

// String returns the service name for logging.
func (s *BatchSchedulerService) String() string {
	return s.name
}
