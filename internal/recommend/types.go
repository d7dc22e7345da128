// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"errors"
	"sort"
	"time"
)

// Sentinel errors
var (
	// ErrBatchAlreadyRunning is returned when a similarity batch is requested
	// while another one is active. Runs are rejected, never queued.
	ErrBatchAlreadyRunning = errors.New("similarity batch already running")

	// ErrInvalidReaderID is returned for non-positive reader identifiers.
	ErrInvalidReaderID = errors.New("invalid reader id")

	// ErrInvalidFilters is returned when a Filters value is internally inconsistent.
	ErrInvalidFilters = errors.New("invalid recommendation filters")

	// ErrInvalidBookID is returned for non-positive book identifiers.
	ErrInvalidBookID = errors.New("invalid book id")

	// ErrBookNotFound is returned when a book is missing from the catalog.
	ErrBookNotFound = errors.New("book not found")
)

// Rating score bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// RawRating is one row of the rating snapshot as delivered by the store.
// Values are untrusted: the matrix builder rejects out-of-range scores and
// duplicate (reader, book) pairs.
type RawRating struct {
	ReaderID int
	BookID   int
	Score    int
}

// RatingVector is one reader's sparse rating vector.
type RatingVector struct {
	// ReaderID identifies the reader.
	ReaderID int `json:"reader_id"`

	// Scores maps book ID to rating (1..5).
	Scores map[int]float64 `json:"scores"`

	// Mean is the reader's global mean rating over all rated books.
	Mean float64 `json:"mean"`

	// books holds the keys of Scores in ascending order so overlap
	// computation can merge two vectors deterministically.
	books []int
}

// NewRatingVector builds a vector from a book->score map and caches its mean.
func NewRatingVector(readerID int, scores map[int]float64) *RatingVector {
	v := &RatingVector{
		ReaderID: readerID,
		Scores:   scores,
		books:    make([]int, 0, len(scores)),
	}
	for bookID := range scores {
		v.books = append(v.books, bookID)
	}
	sort.Ints(v.books)

	// Summed in book order so the mean is reproducible bit for bit.
	var sum float64
	for _, bookID := range v.books {
		sum += scores[bookID]
	}
	if len(v.books) > 0 {
		v.Mean = sum / float64(len(v.books))
	}
	return v
}

// Len returns the number of rated books.
func (v *RatingVector) Len() int {
	return len(v.books)
}

// Books returns the rated book IDs in ascending order. The slice is shared.
func (v *RatingVector) Books() []int {
	return v.books
}

// SimilarityEdge is the transient similarity between two readers.
// Edges are symmetric: ReaderA < ReaderB by construction.
type SimilarityEdge struct {
	ReaderA int `json:"reader_a"`
	ReaderB int `json:"reader_b"`

	// Pearson is set when the pearson metric was selected and non-degenerate.
	Pearson *float64 `json:"pearson,omitempty"`

	// Cosine is set when the mean-centered cosine metric was selected and non-degenerate.
	Cosine *float64 `json:"cosine,omitempty"`

	// RawSimilarity is the combined similarity before shrinkage.
	RawSimilarity float64 `json:"raw_similarity"`

	// OverlapCount is the number of co-rated books.
	OverlapCount int `json:"overlap_count"`

	// AdjustedSimilarity is RawSimilarity after shrinkage.
	AdjustedSimilarity float64 `json:"adjusted_similarity"`
}

// NeighborEntry is one persisted neighbor of a reader.
type NeighborEntry struct {
	ReaderID           int     `json:"reader_id"`
	NeighborID         int     `json:"neighbor_id"`
	AdjustedSimilarity float64 `json:"adjusted_similarity"`
	RawSimilarity      float64 `json:"raw_similarity"`
	OverlapCount       int     `json:"overlap_count"`

	// Rank is 1-based and dense within the reader's set.
	Rank int `json:"rank"`
}

// BookMeta is catalog metadata for one book.
type BookMeta struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	IsRomantasy bool     `json:"is_romantasy"`
	SpiceLevel  *int     `json:"spice_level,omitempty"`
	AgeCategory string   `json:"age_category,omitempty"`
	Tropes      []string `json:"tropes,omitempty"`
}

// Explanation describes why a book was recommended. It is derived from the
// same contributing neighbor set as the score and never recomputed.
type Explanation struct {
	// SimilarUserCount is the number of contributing neighbors.
	SimilarUserCount int `json:"similar_user_count"`

	// AverageNeighborRating is the unweighted mean rating of contributors.
	AverageNeighborRating float64 `json:"average_neighbor_rating"`

	// TopSharedBooks are titles the reader and the most similar contributors all loved.
	TopSharedBooks []string `json:"top_shared_books"`

	// Text is the rendered human-readable explanation.
	Text string `json:"text"`
}

// Recommendation is one scored candidate book.
type Recommendation struct {
	BookID          int         `json:"book_id"`
	Title           string      `json:"title"`
	Author          string      `json:"author"`
	SpiceLevel      *int        `json:"spice_level,omitempty"`
	AgeCategory     string      `json:"age_category,omitempty"`
	Tropes          []string    `json:"tropes,omitempty"`
	PredictedRating float64     `json:"predicted_rating"`
	Confidence      float64     `json:"confidence"`
	Explanation     Explanation `json:"explanation"`
}

// Status distinguishes a usable result from a cold-start one.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"

	// StatusAlreadyRated and StatusNotEligible only appear on BookExplanation:
	// the book is not a candidate for this reader at all.
	StatusAlreadyRated Status = "already_rated"
	StatusNotEligible  Status = "not_eligible"
)

// Contributor is one neighbor's input to a single book's score.
type Contributor struct {
	ReaderID   int     `json:"reader_id"`
	Similarity float64 `json:"similarity"`
	Rating     int     `json:"rating"`
}

// SharedFavorite is a book the reader loved that SharedBy of the most
// similar contributors also loved.
type SharedFavorite struct {
	BookID   int    `json:"book_id"`
	Title    string `json:"title"`
	SharedBy int    `json:"shared_by"`
}

// BookExplanation is the full account of one book's score for one reader.
// Contributors is the exact set the prediction was computed from.
type BookExplanation struct {
	ReaderID        int              `json:"reader_id"`
	BookID          int              `json:"book_id"`
	Title           string           `json:"title"`
	Author          string           `json:"author"`
	Status          Status           `json:"status"`
	PredictedRating float64          `json:"predicted_rating"`
	Confidence      float64          `json:"confidence"`
	Contributors    []Contributor    `json:"contributors"`
	SharedFavorites []SharedFavorite `json:"shared_favorites"`
	Explanation     Explanation      `json:"explanation"`
}

// SimilarReader is a persisted neighbor plus titles both readers loved.
type SimilarReader struct {
	NeighborEntry
	SharedFavorites []string `json:"shared_favorites"`
}

// RecommendationList is the result of GetRecommendations.
type RecommendationList struct {
	ReaderID    int              `json:"reader_id"`
	Status      Status           `json:"status"`
	Items       []Recommendation `json:"items"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Filters narrows the candidate set. Zero values disable a filter.
type Filters struct {
	// SpiceMin and SpiceMax bound the spice level (0..5). Books with unknown
	// spice fail any bound that is set.
	SpiceMin *int `json:"spice_min,omitempty"`
	SpiceMax *int `json:"spice_max,omitempty"`

	// AgeCategory keeps only books in this category (adult, new_adult, ya).
	AgeCategory string `json:"age_category,omitempty"`

	// TropeInclude keeps books tagged with at least one of these tropes.
	TropeInclude []string `json:"trope_include,omitempty"`

	// TropeExclude drops books tagged with any of these tropes.
	TropeExclude []string `json:"trope_exclude,omitempty"`
}

// BatchStatus is the terminal status of a batch run.
type BatchStatus string

const (
	BatchCompleted      BatchStatus = "completed"
	BatchFailed         BatchStatus = "failed"
	BatchAlreadyRunning BatchStatus = "already_running"
)

// BatchResult summarizes one RunSimilarityBatch call.
type BatchResult struct {
	RunID          string        `json:"run_id,omitempty"`
	Status         BatchStatus   `json:"status"`
	ReadersUpdated int           `json:"readers_updated"`
	EdgesEmitted   int64         `json:"edges_emitted"`
	RecordsSkipped int           `json:"records_skipped"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Error          string        `json:"error,omitempty"`
}

// BatchState is the orchestrator's state machine position.
type BatchState string

const (
	StateIdle              BatchState = "idle"
	StateRunningSimilarity BatchState = "running_similarity"
	StateRunningSelection  BatchState = "running_selection"
	StatePersisting        BatchState = "persisting"
	StateFailed            BatchState = "failed"
)

// Running reports whether the state belongs to an active run.
func (s BatchState) Running() bool {
	switch s {
	case StateRunningSimilarity, StateRunningSelection, StatePersisting:
		return true
	default:
		return false
	}
}

// OrchestratorStatus is a point-in-time view of the batch orchestrator.
type OrchestratorStatus struct {
	State          BatchState   `json:"state"`
	CurrentRunID   string       `json:"current_run_id,omitempty"`
	LastResult     *BatchResult `json:"last_result,omitempty"`
	LastSuccess    *BatchResult `json:"last_success,omitempty"`
	LastFailureErr string       `json:"last_failure_error,omitempty"`
}
