// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/shelfmates/internal/models"
	"github.com/tomtom215/shelfmates/internal/validation"
)

// Recommendations handles GET /api/v1/readers/{readerID}/recommendations.
//
// A reader without usable neighbors gets 200 with status insufficient_data
// and an empty item list.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := parseRecommendationsRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	list, err := h.engine.GetRecommendations(r.Context(), req.ReaderID, req.Filters(), req.Limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, list, start)
}

func parseRecommendationsRequest(r *http.Request) (*validation.RecommendationsRequest, error) {
	readerID, err := readerIDParam(r)
	if err != nil {
		return nil, err
	}
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		return nil, err
	}
	spiceMin, err := getOptionalIntParam(r, "spice_min")
	if err != nil {
		return nil, err
	}
	spiceMax, err := getOptionalIntParam(r, "spice_max")
	if err != nil {
		return nil, err
	}

	return &validation.RecommendationsRequest{
		ReaderID:     readerID,
		Limit:        limit,
		SpiceMin:     spiceMin,
		SpiceMax:     spiceMax,
		AgeCategory:  r.URL.Query().Get("age_category"),
		TropeInclude: getListParam(r, "trope_include"),
		TropeExclude: getListParam(r, "trope_exclude"),
	}, nil
}

// Neighbors handles GET /api/v1/readers/{readerID}/neighbors.
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	readerID, err := readerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	req := validation.NeighborsRequest{ReaderID: readerID, Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	neighbors, err := h.engine.GetSimilarReaders(r.Context(), req.ReaderID, req.Limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, models.NeighborsResponse{
		ReaderID:  req.ReaderID,
		Neighbors: neighbors,
	}, start)
}

// Explanation handles GET /api/v1/readers/{readerID}/recommendations/{bookID}/explanation.
func (h *Handler) Explanation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	readerID, err := readerIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	bookID, err := bookIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	req := validation.ExplanationRequest{ReaderID: readerID, BookID: bookID}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	exp, err := h.engine.ExplainRecommendation(r.Context(), req.ReaderID, req.BookID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, exp, start)
}
