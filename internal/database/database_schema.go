// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

/*
database_schema.go - Database Schema Management

Tables:
  - readers: reader accounts with the allow_data_for_recs opt-out flag
  - books: catalog with Romantasy classification, spice level and age category
  - book_tropes: trope tags, many per book
  - ratings: one 1-5 score per (reader, book)
  - reader_neighbors: persisted top-K neighbor sets, replaced wholesale per batch
  - batch_runs: similarity batch history

reader_neighbors and book_tropes have no primary key. Their rows are
deleted and re-inserted inside one transaction (a batch swap, a book
upsert), and a unique constraint on rows deleted earlier in the same
transaction is not something every DuckDB release handles. Uniqueness is
enforced by the writers instead.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS readers (
		id INTEGER PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		allow_data_for_recs BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		is_romantasy BOOLEAN NOT NULL DEFAULT FALSE,
		spice_level INTEGER,
		age_category TEXT
	);`,

	`CREATE TABLE IF NOT EXISTS book_tropes (
		book_id INTEGER NOT NULL,
		trope TEXT NOT NULL
	);`,

	// reader_id and book_id are nullable on purpose: rows imported from
	// upstream may be incomplete and are skipped (and counted) at read time.
	`CREATE TABLE IF NOT EXISTS ratings (
		reader_id INTEGER,
		book_id INTEGER,
		score INTEGER,
		observed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE TABLE IF NOT EXISTS reader_neighbors (
		reader_id INTEGER NOT NULL,
		neighbor_id INTEGER NOT NULL,
		adjusted_similarity DOUBLE NOT NULL,
		raw_similarity DOUBLE NOT NULL,
		overlap_count INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		computed_at TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS batch_runs (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		readers_updated INTEGER NOT NULL DEFAULT 0,
		edges_emitted BIGINT NOT NULL DEFAULT 0,
		records_skipped INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		error TEXT
	);`,
}

// createIndexes creates database indexes for query optimization
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}

var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_ratings_reader ON ratings(reader_id);`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_book ON ratings(book_id);`,
	`CREATE INDEX IF NOT EXISTS idx_book_tropes_book ON book_tropes(book_id);`,
	`CREATE INDEX IF NOT EXISTS idx_reader_neighbors_reader ON reader_neighbors(reader_id, rank);`,
	`CREATE INDEX IF NOT EXISTS idx_batch_runs_started ON batch_runs(started_at);`,
}
