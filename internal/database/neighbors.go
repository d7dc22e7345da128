// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/metrics"
	"github.com/tomtom215/shelfmates/internal/recommend"
)

// ReplaceNeighbors swaps the whole neighbor table for sets in one
// transaction. Readers absent from sets lose their rows; readers mapped to an
// empty slice end up with none. On any error the transaction rolls back and
// the previous table stays visible.
func (db *DB) ReplaceNeighbors(ctx context.Context, runID string, sets map[int][]recommend.NeighborEntry, computedAt time.Time) (updated int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("replace", "reader_neighbors", time.Since(start), err)
	}()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM reader_neighbors`); err != nil {
		return 0, fmt.Errorf("clear neighbor table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reader_neighbors (
			reader_id, neighbor_id, adjusted_similarity, raw_similarity,
			overlap_count, rank, run_id, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare neighbor insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	readers := make([]int, 0, len(sets))
	for reader := range sets {
		readers = append(readers, reader)
	}
	sort.Ints(readers)

	computedAt = computedAt.UTC()
	rows := 0
	for _, reader := range readers {
		for _, e := range sets[reader] {
			if _, err = stmt.ExecContext(ctx,
				reader, e.NeighborID, e.AdjustedSimilarity, e.RawSimilarity,
				e.OverlapCount, e.Rank, runID, computedAt); err != nil {
				return 0, fmt.Errorf("insert neighbor (%d, %d): %w", reader, e.NeighborID, err)
			}
			rows++
		}
		// Cancellation is checked between readers so a stopped batch rolls back.
		if err = ctx.Err(); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit neighbor table: %w", err)
	}

	logging.Debug().Str("run_id", runID).Int("readers", len(readers)).Int("rows", rows).Msg("Neighbor table replaced")
	return len(readers), nil
}

// GetNeighbors returns up to limit neighbors of readerID in rank order.
func (db *DB) GetNeighbors(ctx context.Context, readerID, limit int) ([]recommend.NeighborEntry, error) {
	if limit <= 0 {
		return []recommend.NeighborEntry{}, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return guardedRead(db, func() (entries []recommend.NeighborEntry, err error) {
		start := time.Now()
		defer func() {
			metrics.RecordDBQuery("select", "reader_neighbors", time.Since(start), err)
		}()

		rows, err := db.conn.QueryContext(ctx, `
			SELECT reader_id, neighbor_id, adjusted_similarity, raw_similarity, overlap_count, rank
			FROM reader_neighbors
			WHERE reader_id = ?
			ORDER BY rank
			LIMIT ?`, readerID, limit)
		if err != nil {
			return nil, fmt.Errorf("query neighbors: %w", err)
		}
		defer closeWithLog(rows, "rows")

		entries = make([]recommend.NeighborEntry, 0, limit)
		for rows.Next() {
			var e recommend.NeighborEntry
			if err := rows.Scan(&e.ReaderID, &e.NeighborID, &e.AdjustedSimilarity, &e.RawSimilarity, &e.OverlapCount, &e.Rank); err != nil {
				return nil, fmt.Errorf("scan neighbor: %w", err)
			}
			entries = append(entries, e)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate neighbors: %w", err)
		}
		return entries, nil
	})
}
