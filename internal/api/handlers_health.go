// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/shelfmates/internal/models"
)

// readyTimeout bounds the database ping of the readiness probe.
const readyTimeout = 2 * time.Second

// Health returns a summary of process, database and batch health.
// It always answers 200; Status is "healthy" or "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := h.healthStatus(r.Context())
	respondSuccess(w, r, http.StatusOK, resp, start)
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 503 unless the database answers and the read breaker is closed.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := h.healthStatus(r.Context())
	if resp.Status != "healthy" {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   resp,
			Metadata: models.Metadata{
				Timestamp:   time.Now().UTC(),
				QueryTimeMS: time.Since(start).Milliseconds(),
			},
			Error: &models.APIError{Code: codeUnavailable, Message: "service is not ready"},
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, resp, start)
}

func (h *Handler) healthStatus(ctx context.Context) models.HealthResponse {
	resp := models.HealthResponse{
		Status:     "healthy",
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Seconds(),
		BatchState: string(h.engine.Status().State),
		Checks:     map[string]string{},
	}

	if h.health == nil {
		resp.Status = "degraded"
		resp.DatabaseStatus = "unconfigured"
		resp.Checks["database"] = "unconfigured"
		return resp
	}

	pingCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := h.health.Ping(pingCtx); err != nil {
		resp.Status = "degraded"
		resp.DatabaseStatus = "unreachable"
		resp.Checks["database"] = err.Error()
	} else {
		resp.DatabaseStatus = "connected"
		resp.Checks["database"] = "ok"
	}

	resp.BreakerState = h.health.BreakerState()
	resp.Checks["read_breaker"] = resp.BreakerState
	if resp.BreakerState == "open" {
		resp.Status = "degraded"
	}
	return resp
}
