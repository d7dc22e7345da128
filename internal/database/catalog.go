// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/shelfmates/internal/logging"
	"github.com/tomtom215/shelfmates/internal/metrics"
	"github.com/tomtom215/shelfmates/internal/recommend"
)

// BookMetadata returns catalog metadata for the given IDs, tropes included.
// Unknown IDs are absent from the result.
func (db *DB) BookMetadata(ctx context.Context, ids []int) (map[int]recommend.BookMeta, error) {
	ids = uniqueIDs(ids)
	out := make(map[int]recommend.BookMeta, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for _, chunk := range chunkIDs(ids, maxInListSize) {
		if _, err := guardedRead(db, func() (struct{}, error) {
			if err := db.readBooksChunk(ctx, chunk, out); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, db.readTropesChunk(ctx, chunk, out)
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *DB) readBooksChunk(ctx context.Context, ids []int, out map[int]recommend.BookMeta) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("select", "books", time.Since(start), err)
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, author, is_romantasy, spice_level, age_category
		FROM books
		WHERE id IN (`+placeholders(len(ids))+`)`, intArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query books: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			b           recommend.BookMeta
			spice       sql.NullInt64
			ageCategory sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.IsRomantasy, &spice, &ageCategory); err != nil {
			return fmt.Errorf("scan book: %w", err)
		}
		if spice.Valid {
			level := int(spice.Int64)
			b.SpiceLevel = &level
		}
		b.AgeCategory = ageCategory.String
		out[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate books: %w", err)
	}
	return nil
}

func (db *DB) readTropesChunk(ctx context.Context, ids []int, out map[int]recommend.BookMeta) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("select", "book_tropes", time.Since(start), err)
	}()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT book_id, trope
		FROM book_tropes
		WHERE book_id IN (`+placeholders(len(ids))+`)
		ORDER BY book_id, trope`, intArgs(ids)...)
	if err != nil {
		return fmt.Errorf("query tropes: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			bookID int
			trope  string
		)
		if err := rows.Scan(&bookID, &trope); err != nil {
			return fmt.Errorf("scan trope: %w", err)
		}
		b, ok := out[bookID]
		if !ok {
			continue
		}
		b.Tropes = append(b.Tropes, trope)
		out[bookID] = b
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tropes: %w", err)
	}
	return nil
}

// IsRomantasy reports whether a book is classified as Romantasy.
// Unknown books are not.
func (db *DB) IsRomantasy(ctx context.Context, bookID int) (bool, error) {
	books, err := db.BookMetadata(ctx, []int{bookID})
	if err != nil {
		return false, err
	}
	return books[bookID].IsRomantasy, nil
}

// AuthorOf returns a book's author, or "" for unknown books.
func (db *DB) AuthorOf(ctx context.Context, bookID int) (string, error) {
	books, err := db.BookMetadata(ctx, []int{bookID})
	if err != nil {
		return "", err
	}
	return books[bookID].Author, nil
}

// UpsertBook creates or replaces a catalog entry and its tropes.
func (db *DB) UpsertBook(ctx context.Context, b recommend.BookMeta) (err error) {
	if b.ID <= 0 {
		return fmt.Errorf("book id must be positive, got %d", b.ID)
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

	var spice interface{}
	if b.SpiceLevel != nil {
		spice = *b.SpiceLevel
	}
	var ageCategory interface{}
	if b.AgeCategory != "" {
		ageCategory = b.AgeCategory
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, title, author, is_romantasy, spice_level, age_category)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			is_romantasy = EXCLUDED.is_romantasy,
			spice_level = EXCLUDED.spice_level,
			age_category = EXCLUDED.age_category`,
		b.ID, b.Title, b.Author, b.IsRomantasy, spice, ageCategory); err != nil {
		return fmt.Errorf("upsert book %d: %w", b.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM book_tropes WHERE book_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear tropes for book %d: %w", b.ID, err)
	}
	seen := make(map[string]bool, len(b.Tropes))
	for _, trope := range b.Tropes {
		trope = strings.TrimSpace(trope)
		if trope == "" || seen[trope] {
			continue
		}
		seen[trope] = true
		if _, err = tx.ExecContext(ctx, `INSERT INTO book_tropes (book_id, trope) VALUES (?, ?)`, b.ID, trope); err != nil {
			return fmt.Errorf("insert trope for book %d: %w", b.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit book %d: %w", b.ID, err)
	}
	return nil
}
