// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/shelfmates/internal/database"
	"github.com/tomtom215/shelfmates/internal/recommend"
)

// Error codes returned in APIError.Code.
const (
	codeValidation     = "VALIDATION_ERROR"
	codeAlreadyRunning = "ALREADY_RUNNING"
	codeBatchFailed    = "BATCH_FAILED"
	codeUnavailable    = "SERVICE_UNAVAILABLE"
	codeTimeout        = "TIMEOUT"
	codeRateLimited    = "RATE_LIMIT_EXCEEDED"
	codeNotFound       = "NOT_FOUND"
	codeInternal       = "INTERNAL_ERROR"
)

// errorStatus maps engine and storage errors to an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, recommend.ErrInvalidReaderID), errors.Is(err, recommend.ErrInvalidBookID),
		errors.Is(err, recommend.ErrInvalidFilters):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, recommend.ErrBookNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, recommend.ErrBatchAlreadyRunning):
		return http.StatusConflict, codeAlreadyRunning
	case errors.Is(err, database.ErrCircuitOpen):
		return http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// publicMessage hides internal error text behind a generic message.
func publicMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
