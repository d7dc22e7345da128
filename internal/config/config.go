// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

// Package config loads Shelfmates configuration with Koanf v2.
//
// Sources are layered, highest priority last:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/shelfmates/config.yaml)
//  3. Environment variables (explicit mapping table in envTransformFunc)
//
// The loaded Config is validated before it is returned.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Batch     BatchConfig     `koanf:"batch"`
	Cache     CacheConfig     `koanf:"cache"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // 0 = use NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // DuckDB default is true
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RecommendConfig holds collaborative filtering settings.
type RecommendConfig struct {
	// MinOverlap is the minimum number of co-rated books for a pair of
	// readers to be compared at all. Pairs below it produce no edge.
	// Default: 5
	MinOverlap int `koanf:"min_overlap"`

	// Shrinkage discounts similarities built on small overlaps:
	// adjusted = raw * n / (n + shrinkage).
	// Default: 10
	Shrinkage float64 `koanf:"shrinkage"`

	// Neighbors is K, the number of neighbors retained per reader.
	// Default: 100
	Neighbors int `koanf:"neighbors"`

	// SimilarityMetric is pearson, cosine or both.
	// Default: pearson
	SimilarityMetric string `koanf:"similarity_metric"`

	// MinSimilarity drops edges whose adjusted similarity is not above it.
	// Default: 0
	MinSimilarity float64 `koanf:"min_similarity"`

	// DiversityCapPerAuthor limits how many books by one author appear in a list.
	// Default: 2
	DiversityCapPerAuthor int `koanf:"diversity_cap_per_author"`

	MaxResults          int `koanf:"max_results"`            // Default: 50
	DefaultLimit        int `koanf:"default_limit"`          // Default: 20
	MinNeighborsPerBook int `koanf:"min_neighbors_per_book"` // Default: 1

	HighRatingThreshold   int `koanf:"high_rating_threshold"`    // Default: 4
	ExplainTopNeighbors   int `koanf:"explain_top_neighbors"`    // Default: 5
	ExplainMaxSharedBooks int `koanf:"explain_max_shared_books"` // Default: 5

	ConfidenceNeighborSaturation   float64 `koanf:"confidence_neighbor_saturation"`   // Default: 10
	ConfidenceSimilaritySaturation float64 `koanf:"confidence_similarity_saturation"` // Default: 2

	// NumWorkers bounds the similarity worker pool. 0 = NumCPU.
	NumWorkers int `koanf:"num_workers"`

	// MinReaders is the smallest opted-in reader base worth computing
	// similarities for. Below it a batch completes without edges.
	// Default: 0 (always compute)
	MinReaders int `koanf:"min_readers"`
}

// BatchConfig holds the similarity batch schedule.
type BatchConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	RunOnStartup bool          `koanf:"run_on_startup"`
	Timeout      time.Duration `koanf:"timeout"`
}

// CacheConfig selects and tunes the recommendation cache.
type CacheConfig struct {
	// Backend is memory or badger.
	Backend        string        `koanf:"backend"`
	TTL            time.Duration `koanf:"ttl"`
	BadgerPath     string        `koanf:"badger_path"`
	BadgerInMemory bool          `koanf:"badger_in_memory"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
