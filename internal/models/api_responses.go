// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package models

import (
	"time"

	"github.com/tomtom215/shelfmates/internal/recommend"
)

// APIResponse is the envelope returned by every JSON endpoint.
//
// Status is "success" with Data set, or "error" with Error set.
//
//	{
//	  "status": "success",
//	  "data": {"reader_id": 7, "status": "ok", "items": [...]},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries timing for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes used by the API:
//   - VALIDATION_ERROR: invalid path or query parameters
//   - ALREADY_RUNNING: a similarity batch is in progress
//   - BATCH_FAILED: the batch ran and failed; the previous neighbor table is kept
//   - SERVICE_UNAVAILABLE: the database read breaker is open
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NeighborsResponse is the payload of GET /readers/{readerID}/neighbors.
type NeighborsResponse struct {
	ReaderID  int                       `json:"reader_id"`
	Neighbors []recommend.SimilarReader `json:"neighbors"`
}

// BatchStatusResponse is the payload of GET /batch/status.
type BatchStatusResponse struct {
	recommend.OrchestratorStatus
	RecentRuns []recommend.BatchResult `json:"recent_runs"`
}

// HealthResponse is the payload of the health endpoints.
type HealthResponse struct {
	Status         string            `json:"status"`
	Version        string            `json:"version"`
	Uptime         float64           `json:"uptime_seconds"`
	DatabaseStatus string            `json:"database_status,omitempty"`
	BreakerState   string            `json:"breaker_state,omitempty"`
	BatchState     string            `json:"batch_state,omitempty"`
	Checks         map[string]string `json:"checks,omitempty"`
}
