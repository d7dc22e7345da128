// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/models"
	"github.com/tomtom215/shelfmates/internal/recommend"
	"github.com/tomtom215/shelfmates/internal/validation"
)

// statusRecentRuns is how many history rows the status endpoint embeds.
const statusRecentRuns = 5

// TriggerBatch handles POST /api/v1/batch/runs.
//
// By default the run slot is claimed in the request, the run continues in
// the background and the response is 202 with its run_id.
// ?wait=true runs it in the request and returns the BatchResult: 200 on
// completion, 500 BATCH_FAILED on failure (the previous neighbor table
// stays in place). A run already in progress yields 409.
func (h *Handler) TriggerBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if getBoolParam(r, "wait") {
		h.runBatchSync(w, r, start)
		return
	}

	logger := logging.FromContext(r.Context(), h.logger)
	h.batches.Add(1)
	accepted, err := h.engine.StartSimilarityBatch(h.baseCtx, func(result recommend.BatchResult, err error) {
		defer h.batches.Done()
		if err != nil {
			logger.Error().Err(err).Str("run_id", result.RunID).Msg("Triggered similarity batch failed")
			return
		}
		logger.Info().Str("run_id", result.RunID).Int("readers_updated", result.ReadersUpdated).Msg("Triggered similarity batch completed")
	})
	if err != nil {
		h.batches.Done()
		if errors.Is(err, recommend.ErrBatchAlreadyRunning) {
			respondAlreadyRunning(w, h.engine.Status())
			return
		}
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusAccepted, map[string]interface{}{
		"accepted":   true,
		"run_id":     accepted.RunID,
		"started_at": accepted.StartedAt,
	}, start)
}

func (h *Handler) runBatchSync(w http.ResponseWriter, r *http.Request, start time.Time) {
	result, err := h.engine.RunSimilarityBatch(r.Context())
	switch {
	case errors.Is(err, recommend.ErrBatchAlreadyRunning):
		respondAlreadyRunning(w, h.engine.Status())
	case err != nil:
		respondErrorDetails(w, http.StatusInternalServerError, &models.APIError{
			Code:    codeBatchFailed,
			Message: "similarity batch failed; previous neighbor table kept",
			Details: map[string]interface{}{
				"run_id": result.RunID,
				"error":  result.Error,
			},
		}, err)
	default:
		respondSuccess(w, r, http.StatusOK, result, start)
	}
}

func respondAlreadyRunning(w http.ResponseWriter, status recommend.OrchestratorStatus) {
	respondErrorDetails(w, http.StatusConflict, &models.APIError{
		Code:    codeAlreadyRunning,
		Message: recommend.ErrBatchAlreadyRunning.Error(),
		Details: map[string]interface{}{
			"state":          status.State,
			"current_run_id": status.CurrentRunID,
		},
	}, nil)
}

// BatchStatus handles GET /api/v1/batch/status.
func (h *Handler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resp := models.BatchStatusResponse{
		OrchestratorStatus: h.engine.Status(),
		RecentRuns:         []recommend.BatchResult{},
	}
	if h.history != nil {
		runs, err := h.history.RecentBatchRuns(r.Context(), statusRecentRuns)
		if err != nil {
			// Status stays useful without history.
			logger := logging.FromContext(r.Context(), h.logger)
			logger.Warn().Err(err).Msg("Failed to load batch history for status")
		} else {
			resp.RecentRuns = runs
		}
	}

	respondSuccess(w, r, http.StatusOK, resp, start)
}

// BatchRuns handles GET /api/v1/batch/runs.
func (h *Handler) BatchRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "batch history is not available", nil)
		return
	}

	limit, err := getIntParam(r, "limit", 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	req := validation.BatchHistoryRequest{Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	runs, err := h.history.RecentBatchRuns(r.Context(), req.Limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, runs, start)
}
