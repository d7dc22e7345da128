// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/shelfmates/internal/recommend"
)

// maxTropeLength bounds a single trope filter value.
const maxTropeLength = 64

// RecommendationsRequest holds the parsed query of
// GET /api/v1/readers/{readerID}/recommendations.
type RecommendationsRequest struct {
	ReaderID     int      `query:"reader_id" validate:"gt=0"`
	Limit        int      `query:"limit" validate:"min=0,max=500"`
	SpiceMin     *int     `query:"spice_min" validate:"omitempty,min=0,max=5"`
	SpiceMax     *int     `query:"spice_max" validate:"omitempty,min=0,max=5"`
	AgeCategory  string   `query:"age_category" validate:"omitempty,oneof=adult new_adult ya"`
	TropeInclude []string `query:"trope_include" validate:"max=20,dive,trope"`
	TropeExclude []string `query:"trope_exclude" validate:"max=20,dive,trope"`
}

// Filters converts the request into engine filters.
func (r *RecommendationsRequest) Filters() recommend.Filters {
	return recommend.Filters{
		SpiceMin:     r.SpiceMin,
		SpiceMax:     r.SpiceMax,
		AgeCategory:  r.AgeCategory,
		TropeInclude: r.TropeInclude,
		TropeExclude: r.TropeExclude,
	}
}

// NeighborsRequest holds the parsed query of GET /api/v1/readers/{readerID}/neighbors.
type NeighborsRequest struct {
	ReaderID int `query:"reader_id" validate:"gt=0"`
	Limit    int `query:"limit" validate:"min=0,max=1000"`
}

// ExplanationRequest holds the path of
// GET /api/v1/readers/{readerID}/recommendations/{bookID}/explanation.
type ExplanationRequest struct {
	ReaderID int `query:"reader_id" validate:"gt=0"`
	BookID   int `query:"book_id" validate:"gt=0"`
}

// BatchHistoryRequest holds the parsed query of GET /api/v1/batch/runs.
type BatchHistoryRequest struct {
	Limit int `query:"limit" validate:"min=0,max=100"`
}

// queryTagName reports fields by their query parameter name.
func queryTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func registerCustomValidators(v *validator.Validate) {
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("trope", validateTrope)
	v.RegisterStructValidation(validateSpiceRange, RecommendationsRequest{})
}

func validateTrope(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s != "" && len(s) <= maxTropeLength
}

func validateSpiceRange(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(RecommendationsRequest)
	if !ok || req.SpiceMin == nil || req.SpiceMax == nil {
		return
	}
	if *req.SpiceMin > *req.SpiceMax {
		sl.ReportError(req.SpiceMin, "spice_min", "SpiceMin", "spice_range", "")
	}
}
