// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shelfmates/config.yaml",
	"/etc/shelfmates/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default filled in.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8470,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:                   "/data/shelfmates.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			MinOverlap:                     5,
			Shrinkage:                      10,
			Neighbors:                      100,
			SimilarityMetric:               "pearson",
			MinSimilarity:                  0,
			DiversityCapPerAuthor:          2,
			MaxResults:                     50,
			DefaultLimit:                   20,
			MinNeighborsPerBook:            1,
			HighRatingThreshold:            4,
			ExplainTopNeighbors:            5,
			ExplainMaxSharedBooks:          5,
			ConfidenceNeighborSaturation:   10,
			ConfidenceSimilaritySaturation: 2,
			NumWorkers:                     0,
			MinReaders:                     0,
		},
		Batch: BatchConfig{
			Enabled:      true,
			Interval:     24 * time.Hour,
			RunOnStartup: false,
			Timeout:      30 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:        "memory",
			TTL:            15 * time.Minute,
			BadgerPath:     "/data/cache",
			BadgerInMemory: false,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
// Precedence is ENV > file > defaults.
func LoadWithKoanf() (*Config, error) {
	return loadFrom(findConfigFile())
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SHELFMATES_MIN_OVERLAP -> recommend.min_overlap, DUCKDB_PATH -> database.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak into config.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Database
	"duckdb_path":                     "database.path",
	"duckdb_max_memory":               "database.max_memory",
	"duckdb_threads":                  "database.threads",
	"duckdb_preserve_insertion_order": "database.preserve_insertion_order",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Recommendation engine
	"shelfmates_min_overlap":                      "recommend.min_overlap",
	"shelfmates_shrinkage":                        "recommend.shrinkage",
	"shelfmates_neighbors":                        "recommend.neighbors",
	"shelfmates_similarity_metric":                "recommend.similarity_metric",
	"shelfmates_min_similarity":                   "recommend.min_similarity",
	"shelfmates_diversity_cap_per_author":         "recommend.diversity_cap_per_author",
	"shelfmates_max_results":                      "recommend.max_results",
	"shelfmates_default_limit":                    "recommend.default_limit",
	"shelfmates_min_neighbors_per_book":           "recommend.min_neighbors_per_book",
	"shelfmates_high_rating_threshold":            "recommend.high_rating_threshold",
	"shelfmates_explain_top_neighbors":            "recommend.explain_top_neighbors",
	"shelfmates_explain_max_shared_books":         "recommend.explain_max_shared_books",
	"shelfmates_confidence_neighbor_saturation":   "recommend.confidence_neighbor_saturation",
	"shelfmates_confidence_similarity_saturation": "recommend.confidence_similarity_saturation",
	"shelfmates_num_workers":                      "recommend.num_workers",
	"shelfmates_min_readers":                      "recommend.min_readers",

	// Batch schedule
	"batch_enabled":        "batch.enabled",
	"batch_interval":       "batch.interval",
	"batch_run_on_startup": "batch.run_on_startup",
	"batch_timeout":        "batch.timeout",

	// Cache
	"cache_backend":          "cache.backend",
	"cache_ttl":              "cache.ttl",
	"cache_badger_path":      "cache.badger_path",
	"cache_badger_in_memory": "cache.badger_in_memory",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - SHELFMATES_MIN_OVERLAP -> recommend.min_overlap
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
