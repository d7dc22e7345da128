// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateBatch(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0")
	}
	return nil
}

// validSimilarityMetrics defines the allowed similarity metrics
var validSimilarityMetrics = map[string]bool{
	"pearson": true,
	"cosine":  true,
	"both":    true,
}

// validateRecommend validates the collaborative filtering parameters
func (c *Config) validateRecommend() error {
	r := c.Recommend

	if r.MinOverlap < 1 {
		return fmt.Errorf("SHELFMATES_MIN_OVERLAP must be >= 1")
	}
	if r.Shrinkage < 0 {
		return fmt.Errorf("SHELFMATES_SHRINKAGE must be >= 0")
	}
	if r.Neighbors < 1 {
		return fmt.Errorf("SHELFMATES_NEIGHBORS must be >= 1")
	}
	if !validSimilarityMetrics[r.SimilarityMetric] {
		return fmt.Errorf("SHELFMATES_SIMILARITY_METRIC must be one of: pearson, cosine, both")
	}
	if r.MinSimilarity < -1 || r.MinSimilarity > 1 {
		return fmt.Errorf("SHELFMATES_MIN_SIMILARITY must be between -1 and 1")
	}
	if r.DiversityCapPerAuthor < 1 {
		return fmt.Errorf("SHELFMATES_DIVERSITY_CAP_PER_AUTHOR must be >= 1")
	}

	return c.validateRecommendLimits()
}

func (c *Config) validateRecommendLimits() error {
	r := c.Recommend

	if r.MaxResults < 1 {
		return fmt.Errorf("SHELFMATES_MAX_RESULTS must be >= 1")
	}
	if r.DefaultLimit < 1 || r.DefaultLimit > r.MaxResults {
		return fmt.Errorf("SHELFMATES_DEFAULT_LIMIT must be between 1 and SHELFMATES_MAX_RESULTS (%d)", r.MaxResults)
	}
	if r.MinNeighborsPerBook < 1 {
		return fmt.Errorf("SHELFMATES_MIN_NEIGHBORS_PER_BOOK must be >= 1")
	}
	if r.HighRatingThreshold < 1 || r.HighRatingThreshold > 5 {
		return fmt.Errorf("SHELFMATES_HIGH_RATING_THRESHOLD must be between 1 and 5")
	}
	if r.ExplainTopNeighbors < 1 || r.ExplainMaxSharedBooks < 0 {
		return fmt.Errorf("SHELFMATES_EXPLAIN_TOP_NEIGHBORS must be >= 1 and SHELFMATES_EXPLAIN_MAX_SHARED_BOOKS >= 0")
	}
	if r.ConfidenceNeighborSaturation <= 0 || r.ConfidenceSimilaritySaturation <= 0 {
		return fmt.Errorf("confidence saturation values must be positive")
	}
	if r.NumWorkers < 0 || r.MinReaders < 0 {
		return fmt.Errorf("SHELFMATES_NUM_WORKERS and SHELFMATES_MIN_READERS must be >= 0")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if !c.Batch.Enabled {
		return nil
	}
	if c.Batch.Interval < time.Minute {
		return fmt.Errorf("BATCH_INTERVAL must be at least 1m")
	}
	if c.Batch.Timeout <= 0 {
		return fmt.Errorf("BATCH_TIMEOUT must be positive")
	}
	return nil
}

// validCacheBackends defines the allowed recommendation cache backends
var validCacheBackends = map[string]bool{
	"memory": true,
	"badger": true,
}

func (c *Config) validateCache() error {
	if !validCacheBackends[c.Cache.Backend] {
		return fmt.Errorf("CACHE_BACKEND must be one of: memory, badger")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.Backend == "badger" && !c.Cache.BadgerInMemory && strings.TrimSpace(c.Cache.BadgerPath) == "" {
		return fmt.Errorf("CACHE_BADGER_PATH is required when CACHE_BACKEND=badger")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if wildcard CORS is configured in production.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.IsProduction() && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
