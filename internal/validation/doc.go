// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

// Package validation validates HTTP request structs with go-playground/validator v10.
//
// A single validator instance is shared process-wide. Field errors are reported
// under their query parameter names (the `query` struct tag) and translated into
// the VALIDATION_ERROR shape used by the API envelope.
//
// # Custom rules
//
//   - trope: a non-blank trope tag of at most 64 characters
//   - spice_range (struct level): spice_min must not exceed spice_max
//
// # Usage
//
//	req := validation.RecommendationsRequest{ReaderID: 7, Limit: 20}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
