// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return defaultConfig()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"negative shrinkage", func(c *Config) { c.Recommend.Shrinkage = -1 }, "SHELFMATES_SHRINKAGE"},
		{"zero neighbors", func(c *Config) { c.Recommend.Neighbors = 0 }, "SHELFMATES_NEIGHBORS"},
		{"cosine metric", func(c *Config) { c.Recommend.SimilarityMetric = "cosine" }, ""},
		{"min similarity out of range", func(c *Config) { c.Recommend.MinSimilarity = 1.5 }, "SHELFMATES_MIN_SIMILARITY"},
		{"zero diversity cap", func(c *Config) { c.Recommend.DiversityCapPerAuthor = 0 }, "SHELFMATES_DIVERSITY_CAP_PER_AUTHOR"},
		{"default limit above max", func(c *Config) { c.Recommend.DefaultLimit = 60 }, "SHELFMATES_DEFAULT_LIMIT"},
		{"high rating threshold too big", func(c *Config) { c.Recommend.HighRatingThreshold = 6 }, "SHELFMATES_HIGH_RATING_THRESHOLD"},
		{"zero saturation", func(c *Config) { c.Recommend.ConfidenceNeighborSaturation = 0 }, "saturation"},
		{"short batch interval", func(c *Config) { c.Batch.Interval = time.Second }, "BATCH_INTERVAL"},
		{"disabled batch ignores interval", func(c *Config) {
			c.Batch.Enabled = false
			c.Batch.Interval = 0
		}, ""},
		{"badger without path", func(c *Config) {
			c.Cache.Backend = "badger"
			c.Cache.BadgerPath = ""
		}, "CACHE_BADGER_PATH"},
		{"in-memory badger without path", func(c *Config) {
			c.Cache.Backend = "badger"
			c.Cache.BadgerPath = ""
			c.Cache.BadgerInMemory = true
		}, ""},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }, "CACHE_TTL"},
		{"console log format", func(c *Config) { c.Logging.Format = "console" }, ""},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateRateLimits(t *testing.T) {
	tests := []struct {
		name     string
		reqs     int
		window   time.Duration
		disabled bool
		wantErr  bool
	}{
		{"valid", 100, time.Minute, false, false},
		{"zero requests", 0, time.Minute, false, true},
		{"too many requests", 100001, time.Minute, false, true},
		{"window too short", 10, time.Millisecond, false, true},
		{"window too long", 10, 2 * time.Hour, false, true},
		{"disabled skips checks", 0, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Security.RateLimitReqs = tt.reqs
			cfg.Security.RateLimitWindow = tt.window
			cfg.Security.RateLimitDisabled = tt.disabled

			err := cfg.validateRateLimits()
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRateLimits() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := validConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("development wildcard CORS should not warn")
	}

	cfg.Server.Environment = "production"
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("production wildcard CORS should warn")
	}

	cfg.Security.CORSOrigins = []string{"https://shelfmates.example"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8470}
	if got := s.Addr(); got != "127.0.0.1:8470" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8470", got)
	}
}
