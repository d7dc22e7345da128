// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"fmt"
	"runtime"
	"time"
)

// SimilarityMetric selects which similarity function drives neighbor selection.
type SimilarityMetric string

const (
	// MetricPearson is Pearson correlation over the co-rated books, centered
	// on each reader's mean over that overlap.
	MetricPearson SimilarityMetric = "pearson"

	// MetricCosine is cosine over the co-rated books after centering each
	// reader on their global mean rating.
	MetricCosine SimilarityMetric = "cosine"

	// MetricBoth averages pearson and cosine.
	MetricBoth SimilarityMetric = "both"
)

// Valid reports whether m is a known metric.
func (m SimilarityMetric) Valid() bool {
	switch m {
	case MetricPearson, MetricCosine, MetricBoth:
		return true
	default:
		return false
	}
}

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Similarity contains pairwise similarity parameters.
	Similarity SimilarityConfig `json:"similarity"`

	// Neighbors contains neighbor selection parameters.
	Neighbors NeighborConfig `json:"neighbors"`

	// Scoring contains on-demand scoring parameters.
	Scoring ScoringConfig `json:"scoring"`

	// Explain contains explanation parameters.
	Explain ExplainConfig `json:"explain"`

	// Cache contains recommendation caching parameters.
	Cache CacheConfig `json:"cache"`

	// BatchTimeout bounds one RunSimilarityBatch call. Zero means no bound.
	BatchTimeout time.Duration `json:"batch_timeout"`
}

// SimilarityConfig contains parameters for the similarity engine.
type SimilarityConfig struct {
	// MinOverlap is the minimum number of co-rated books for a pair to be compared.
	// Default: 5.
	MinOverlap int `json:"min_overlap"`

	// Shrinkage regularizes small overlaps: adjusted = raw * n / (n + shrinkage).
	// Default: 10.
	Shrinkage float64 `json:"shrinkage"`

	// Metric selects pearson, cosine or both.
	// Default: pearson.
	Metric SimilarityMetric `json:"metric"`

	// NumWorkers is the number of parallel similarity workers.
	// Default: runtime.NumCPU().
	NumWorkers int `json:"num_workers"`

	// MinReaders is the smallest opted-in reader base worth computing.
	// Below it a batch completes with no edges. Default: 0.
	MinReaders int `json:"min_readers"`
}

// NeighborConfig contains parameters for neighbor selection.
type NeighborConfig struct {
	// K is the maximum number of neighbors kept per reader.
	// Default: 100.
	K int `json:"k"`

	// MinSimilarity drops edges whose adjusted similarity is not above it.
	// Default: 0.
	MinSimilarity float64 `json:"min_similarity"`
}

// ScoringConfig contains parameters for the recommendation scorer.
type ScoringConfig struct {
	// DiversityCapPerAuthor is the maximum number of books per author in one list.
	// Default: 2.
	DiversityCapPerAuthor int `json:"diversity_cap_per_author"`

	// MaxResults caps any list regardless of the requested limit.
	// Default: 50.
	MaxResults int `json:"max_results"`

	// DefaultLimit applies when the caller passes limit <= 0.
	// Default: 20.
	DefaultLimit int `json:"default_limit"`

	// MinNeighborsPerBook is the minimum number of positive contributors a
	// candidate needs to be scored.
	// Default: 1.
	MinNeighborsPerBook int `json:"min_neighbors_per_book"`

	// ConfidenceNeighborSaturation is the contributor count at which the
	// count factor of confidence reaches 1. Default: 10.
	ConfidenceNeighborSaturation float64 `json:"confidence_neighbor_saturation"`

	// ConfidenceSimilaritySaturation is the similarity mass at which the
	// similarity factor of confidence reaches 1. Default: 2.
	ConfidenceSimilaritySaturation float64 `json:"confidence_similarity_saturation"`
}

// ExplainConfig contains parameters for recommendation explanations.
type ExplainConfig struct {
	// HighRatingThreshold is the minimum score that counts as "loved".
	// Default: 4.
	HighRatingThreshold int `json:"high_rating_threshold"`

	// TopNeighbors is how many of the most similar contributors are used
	// to find shared books. Default: 5.
	TopNeighbors int `json:"top_neighbors"`

	// MaxSharedBooks caps TopSharedBooks. Default: 5.
	MaxSharedBooks int `json:"max_shared_books"`
}

// CacheConfig contains recommendation caching parameters.
type CacheConfig struct {
	// Enabled turns response caching on or off.
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			MinOverlap: 5,
			Shrinkage:  10,
			Metric:     MetricPearson,
			NumWorkers: runtime.NumCPU(),
			MinReaders: 0,
		},
		Neighbors: NeighborConfig{
			K:             100,
			MinSimilarity: 0,
		},
		Scoring: ScoringConfig{
			DiversityCapPerAuthor:          2,
			MaxResults:                     50,
			DefaultLimit:                   20,
			MinNeighborsPerBook:            1,
			ConfidenceNeighborSaturation:   10,
			ConfidenceSimilaritySaturation: 2,
		},
		Explain: ExplainConfig{
			HighRatingThreshold: 4,
			TopNeighbors:        5,
			MaxSharedBooks:      5,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		BatchTimeout: 30 * time.Minute,
	}
}

// maxNeighbors is the upper bound for Neighbors.K.
const maxNeighbors = 1000

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Similarity.MinOverlap < 1 {
		return fmt.Errorf("similarity.min_overlap must be positive, got %d", c.Similarity.MinOverlap)
	}
	if c.Similarity.Shrinkage < 0 {
		return fmt.Errorf("similarity.shrinkage must be non-negative, got %f", c.Similarity.Shrinkage)
	}
	if !c.Similarity.Metric.Valid() {
		return fmt.Errorf("similarity.metric must be pearson, cosine or both, got %q", c.Similarity.Metric)
	}
	if c.Similarity.NumWorkers < 1 {
		return fmt.Errorf("similarity.num_workers must be positive, got %d", c.Similarity.NumWorkers)
	}
	if c.Similarity.MinReaders < 0 {
		return fmt.Errorf("similarity.min_readers must be non-negative, got %d", c.Similarity.MinReaders)
	}

	if c.Neighbors.K < 1 || c.Neighbors.K > maxNeighbors {
		return fmt.Errorf("neighbors.k must be in [1, %d], got %d", maxNeighbors, c.Neighbors.K)
	}
	if c.Neighbors.MinSimilarity < -1 || c.Neighbors.MinSimilarity > 1 {
		return fmt.Errorf("neighbors.min_similarity must be in [-1, 1], got %f", c.Neighbors.MinSimilarity)
	}

	if c.Scoring.DiversityCapPerAuthor < 1 {
		return fmt.Errorf("scoring.diversity_cap_per_author must be positive, got %d", c.Scoring.DiversityCapPerAuthor)
	}
	if c.Scoring.MaxResults < 1 {
		return fmt.Errorf("scoring.max_results must be positive, got %d", c.Scoring.MaxResults)
	}
	if c.Scoring.DefaultLimit < 1 || c.Scoring.DefaultLimit > c.Scoring.MaxResults {
		return fmt.Errorf("scoring.default_limit must be in [1, max_results], got %d", c.Scoring.DefaultLimit)
	}
	if c.Scoring.MinNeighborsPerBook < 1 {
		return fmt.Errorf("scoring.min_neighbors_per_book must be positive, got %d", c.Scoring.MinNeighborsPerBook)
	}
	if c.Scoring.ConfidenceNeighborSaturation <= 0 || c.Scoring.ConfidenceSimilaritySaturation <= 0 {
		return fmt.Errorf("scoring confidence saturation values must be positive")
	}

	if c.Explain.HighRatingThreshold < MinScore || c.Explain.HighRatingThreshold > MaxScore {
		return fmt.Errorf("explain.high_rating_threshold must be in [%d, %d], got %d", MinScore, MaxScore, c.Explain.HighRatingThreshold)
	}
	if c.Explain.TopNeighbors < 1 {
		return fmt.Errorf("explain.top_neighbors must be positive, got %d", c.Explain.TopNeighbors)
	}
	if c.Explain.MaxSharedBooks < 0 {
		return fmt.Errorf("explain.max_shared_books must be non-negative, got %d", c.Explain.MaxSharedBooks)
	}

	if c.BatchTimeout < 0 {
		return fmt.Errorf("batch_timeout must be non-negative, got %v", c.BatchTimeout)
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	clone := *c
	return &clone
}

// EffectiveLimit resolves a caller-supplied limit against the defaults and the cap.
func (c *Config) EffectiveLimit(limit int) int {
	if limit <= 0 {
		limit = c.Scoring.DefaultLimit
	}
	if limit > c.Scoring.MaxResults {
		limit = c.Scoring.MaxResults
	}
	return limit
}
