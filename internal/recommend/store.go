// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"time"
)

// This package does not import the database package. The interfaces below
// are implemented by internal/database and by in-memory fakes in tests.

// RatingSource streams the rating snapshot for a batch.
type RatingSource interface {
	// StreamRatings calls fn for every rating of every opted-in reader.
	// Rows the source cannot even decode (NULL columns) are not passed to fn
	// and are reported in skipped.
	StreamRatings(ctx context.Context, fn func(RawRating) error) (skipped int, err error)
}

// RatingReader serves ratings on the request path.
type RatingReader interface {
	// ReaderRatings returns one reader's ratings, book -> score.
	ReaderRatings(ctx context.Context, readerID int) (map[int]int, error)

	// RatingsForReaders returns ratings for several readers, reader -> book -> score.
	RatingsForReaders(ctx context.Context, readerIDs []int) (map[int]map[int]int, error)
}

// Catalog resolves book metadata and Romantasy classification.
type Catalog interface {
	// BookMetadata returns metadata for the given IDs. Unknown IDs are absent.
	BookMetadata(ctx context.Context, ids []int) (map[int]BookMeta, error)
}

// NeighborStore persists neighbor sets.
type NeighborStore interface {
	// ReplaceNeighbors atomically replaces the neighbor sets of every reader
	// in sets. Either all sets are replaced or none are. It returns the
	// number of readers updated.
	ReplaceNeighbors(ctx context.Context, runID string, sets map[int][]NeighborEntry, computedAt time.Time) (int, error)

	// GetNeighbors returns up to limit neighbors of readerID in rank order.
	GetNeighbors(ctx context.Context, readerID, limit int) ([]NeighborEntry, error)
}

// BatchRunRecorder keeps the history of batch runs.
type BatchRunRecorder interface {
	RecordBatchRun(ctx context.Context, result BatchResult) error
}

// Store is the full persistence surface the engine needs.
type Store interface {
	RatingSource
	RatingReader
	Catalog
	NeighborStore
	BatchRunRecorder
}
