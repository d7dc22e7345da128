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

	"github.com/tomtom215/shelfmates/internal/metrics"
	"github.com/tomtom215/shelfmates/internal/recommend"
)

// RecordBatchRun stores or updates the history row of a batch run.
// Results without a run ID (rejected concurrent calls) are not recorded.
func (db *DB) RecordBatchRun(ctx context.Context, result recommend.BatchResult) (err error) {
	if result.RunID == "" {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("upsert", "batch_runs", time.Since(start), err)
	}()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var errText interface{}
	if result.Error != "" {
		errText = result.Error
	}
	startedAt := result.StartedAt.UTC()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO batch_runs (
			run_id, status, readers_updated, edges_emitted, records_skipped,
			started_at, finished_at, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			readers_updated = EXCLUDED.readers_updated,
			edges_emitted = EXCLUDED.edges_emitted,
			records_skipped = EXCLUDED.records_skipped,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error`,
		result.RunID, string(result.Status), result.ReadersUpdated, result.EdgesEmitted, result.RecordsSkipped,
		startedAt, startedAt.Add(result.Duration), errText)
	if err != nil {
		return fmt.Errorf("record batch run %s: %w", result.RunID, err)
	}
	return nil
}

// RecentBatchRuns returns the most recent runs, newest first.
func (db *DB) RecentBatchRuns(ctx context.Context, limit int) ([]recommend.BatchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return guardedRead(db, func() (runs []recommend.BatchResult, err error) {
		start := time.Now()
		defer func() {
			metrics.RecordDBQuery("select", "batch_runs", time.Since(start), err)
		}()

		rows, err := db.conn.QueryContext(ctx, `
			SELECT run_id, status, readers_updated, edges_emitted, records_skipped,
			       started_at, finished_at, error
			FROM batch_runs
			ORDER BY started_at DESC
			LIMIT ?`, limit)
		if err != nil {
			return nil, fmt.Errorf("query batch runs: %w", err)
		}
		defer closeWithLog(rows, "rows")

		runs = make([]recommend.BatchResult, 0, limit)
		for rows.Next() {
			var (
				r          recommend.BatchResult
				status     string
				finishedAt time.Time
				errText    sql.NullString
			)
			if err := rows.Scan(&r.RunID, &status, &r.ReadersUpdated, &r.EdgesEmitted, &r.RecordsSkipped,
				&r.StartedAt, &finishedAt, &errText); err != nil {
				return nil, fmt.Errorf("scan batch run: %w", err)
			}
			r.Status = recommend.BatchStatus(status)
			r.Duration = finishedAt.Sub(r.StartedAt)
			r.Error = errText.String
			runs = append(runs, r)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate batch runs: %w", err)
		}
		return runs, nil
	})
}
