// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/metrics"
	"github.com/tomtom215/shelfmates/internal/recommend"
)

// optedInRatings selects ratings of readers who allow their data to be used.
// Readers without a readers row default to opted in.
const optedInRatings = `
	FROM ratings r
	LEFT JOIN readers u ON u.id = r.reader_id
	WHERE COALESCE(u.allow_data_for_recs, TRUE)`

// StreamRatings streams the opted-in rating snapshot to fn, ordered by
// reader, book and observation time so the earliest duplicate comes first.
// Rows with a NULL reader, book or score never reach fn and are counted in
// skipped. Range checks are left to the caller.
func (db *DB) StreamRatings(ctx context.Context, fn func(recommend.RawRating) error) (skipped int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("stream", "ratings", time.Since(start), err)
	}()

	query := `SELECT r.reader_id, r.book_id, r.score` + optedInRatings + `
		ORDER BY r.reader_id NULLS LAST, r.book_id NULLS LAST, r.observed_at`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("query ratings: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var readerID, bookID, score sql.NullInt64
		if err := rows.Scan(&readerID, &bookID, &score); err != nil {
			return skipped, fmt.Errorf("scan rating: %w", err)
		}
		if !readerID.Valid || !bookID.Valid || !score.Valid {
			skipped++
			continue
		}
		if err := fn(recommend.RawRating{
			ReaderID: int(readerID.Int64),
			BookID:   int(bookID.Int64),
			Score:    int(score.Int64),
		}); err != nil {
			return skipped, err
		}
	}
	if err := rows.Err(); err != nil {
		return skipped, fmt.Errorf("iterate ratings: %w", err)
	}

	if skipped > 0 {
		logging.Debug().Int("skipped", skipped).Msg("Skipped ratings with NULL columns")
	}
	return skipped, nil
}

// ReaderRatings returns one reader's valid ratings, book -> score.
// The earliest rating of a duplicated (reader, book) pair wins.
func (db *DB) ReaderRatings(ctx context.Context, readerID int) (map[int]int, error) {
	out, err := db.RatingsForReaders(ctx, []int{readerID})
	if err != nil {
		return nil, err
	}
	if r, ok := out[readerID]; ok {
		return r, nil
	}
	return map[int]int{}, nil
}

// RatingsForReaders returns valid ratings for several readers,
// reader -> book -> score. Readers who opted out are omitted.
func (db *DB) RatingsForReaders(ctx context.Context, readerIDs []int) (map[int]map[int]int, error) {
	ids := uniqueIDs(readerIDs)
	out := make(map[int]map[int]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for _, chunk := range chunkIDs(ids, maxInListSize) {
		if _, err := guardedRead(db, func() (struct{}, error) {
			return struct{}{}, db.readRatingsChunk(ctx, chunk, out)
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *DB) readRatingsChunk(ctx context.Context, ids []int, out map[int]map[int]int) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("select", "ratings", time.Since(start), err)
	}()

	query := `SELECT r.reader_id, r.book_id, r.score` + optedInRatings + `
		  AND r.reader_id IN (` + placeholders(len(ids)) + `)
		  AND r.book_id IS NOT NULL
		  AND r.score BETWEEN 1 AND 5
		ORDER BY r.reader_id, r.book_id, r.observed_at`

	rows, err := db.conn.QueryContext(ctx, query, intArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query reader ratings: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var readerID, bookID, score int
		if err := rows.Scan(&readerID, &bookID, &score); err != nil {
			return fmt.Errorf("scan reader rating: %w", err)
		}
		m := out[readerID]
		if m == nil {
			m = make(map[int]int)
			out[readerID] = m
		}
		if _, dup := m[bookID]; !dup {
			m[bookID] = score
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reader ratings: %w", err)
	}
	return nil
}

// UpsertRating sets a reader's score for a book, replacing any earlier
// ratings of the same pair.
func (db *DB) UpsertRating(ctx context.Context, readerID, bookID, score int, observedAt time.Time) (err error) {
	if score < recommend.MinScore || score > recommend.MaxScore {
		return ErrInvalidRating
	}
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM ratings WHERE reader_id = ? AND book_id = ?`, readerID, bookID); err != nil {
		return fmt.Errorf("delete previous rating: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO ratings (reader_id, book_id, score, observed_at) VALUES (?, ?, ?, ?)`,
		readerID, bookID, score, observedAt.UTC()); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rating: %w", err)
	}
	return nil
}

// UpsertReader creates or updates a reader and their opt-in flag.
func (db *DB) UpsertReader(ctx context.Context, readerID int, displayName string, allowDataForRecs bool) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO readers (id, display_name, allow_data_for_recs) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			allow_data_for_recs = EXCLUDED.allow_data_for_recs`,
		readerID, displayName, allowDataForRecs)
	if err != nil {
		return fmt.Errorf("upsert reader %d: %w", readerID, err)
	}
	return nil
}
