// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "ratings_test"))

	RecordDBQuery("SELECT", "ratings_test", 5*time.Millisecond, nil)
	RecordDBQuery("SELECT", "ratings_test", 7*time.Millisecond, errors.New("connection closed"))

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "ratings_test"))
	if after-before != 1 {
		t.Errorf("DBQueryErrors delta = %v, want 1", after-before)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues("GET", "/test/{id}", "200")
	before := testutil.ToFloat64(counter)

	RecordAPIRequest("GET", "/test/{id}", "200", 10*time.Millisecond)
	RecordAPIRequest("GET", "/test/{id}", "200", 20*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("APIRequestsTotal delta = %v, want 2", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 2 {
		t.Errorf("active requests delta = %v, want 2", got)
	}

	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestRecordBatchRun(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		readers     int
		edges       int
		wantReaders float64
	}{
		{"completed updates gauges", "completed", 42, 900, 42},
		{"failed keeps previous gauges", "failed", 7, 1, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(BatchRunsTotal.WithLabelValues(tt.status))

			RecordBatchRun(tt.status, tt.readers, tt.edges, time.Second)

			if got := testutil.ToFloat64(BatchRunsTotal.WithLabelValues(tt.status)) - before; got != 1 {
				t.Errorf("BatchRunsTotal{%s} delta = %v, want 1", tt.status, got)
			}
			if got := testutil.ToFloat64(BatchReadersUpdated); got != tt.wantReaders {
				t.Errorf("BatchReadersUpdated = %v, want %v", got, tt.wantReaders)
			}
		})
	}
}

func TestRecordSkippedRecords(t *testing.T) {
	before := testutil.ToFloat64(BatchRecordsSkipped)

	RecordSkippedRecords(3)
	RecordSkippedRecords(0)
	RecordSkippedRecords(-1)

	if got := testutil.ToFloat64(BatchRecordsSkipped) - before; got != 3 {
		t.Errorf("BatchRecordsSkipped delta = %v, want 3", got)
	}
}

func TestRecordRecommendationAndCache(t *testing.T) {
	recBefore := testutil.ToFloat64(RecommendationRequests.WithLabelValues("insufficient_data"))
	cacheBefore := testutil.ToFloat64(CacheOperations.WithLabelValues("memory", "hit"))

	RecordRecommendation("insufficient_data", time.Millisecond)
	RecordCacheResult("memory", "hit")

	if got := testutil.ToFloat64(RecommendationRequests.WithLabelValues("insufficient_data")) - recBefore; got != 1 {
		t.Errorf("RecommendationRequests delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CacheOperations.WithLabelValues("memory", "hit")) - cacheBefore; got != 1 {
		t.Errorf("CacheOperations delta = %v, want 1", got)
	}
}
