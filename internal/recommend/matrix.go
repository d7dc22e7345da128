// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"sort"
)

// Matrix is an immutable sparse snapshot of the rating data: one vector per
// reader plus the inverted index book -> readers used for pair enumeration.
// It is safe for concurrent reads once built.
type Matrix struct {
	vectors map[int]*RatingVector

	// readers lists reader IDs in ascending order.
	readers []int

	// index maps book ID to the ascending list of readers who rated it.
	index map[int][]int

	ratings int
}

// Vector returns the reader's vector, or nil if the reader is absent.
func (m *Matrix) Vector(readerID int) *RatingVector {
	return m.vectors[readerID]
}

// Readers returns all reader IDs in ascending order. The slice is shared.
func (m *Matrix) Readers() []int {
	return m.readers
}

// Raters returns the readers who rated bookID in ascending order. The slice is shared.
func (m *Matrix) Raters(bookID int) []int {
	return m.index[bookID]
}

// NumReaders returns the number of readers in the snapshot.
func (m *Matrix) NumReaders() int {
	return len(m.readers)
}

// NumBooks returns the number of distinct rated books.
func (m *Matrix) NumBooks() int {
	return len(m.index)
}

// NumRatings returns the number of accepted ratings.
func (m *Matrix) NumRatings() int {
	return m.ratings
}

// MatrixBuilder accumulates validated ratings into a Matrix.
// It is not safe for concurrent use.
type MatrixBuilder struct {
	scores  map[int]map[int]float64
	skipped int
	ratings int
}

// NewMatrixBuilder creates an empty builder.
func NewMatrixBuilder() *MatrixBuilder {
	return &MatrixBuilder{
		scores: make(map[int]map[int]float64),
	}
}

// Add accepts one raw rating. Malformed records are counted and skipped:
// non-positive IDs, scores outside 1..5, and a repeated (reader, book) pair,
// where the first occurrence wins. Add reports whether the record was kept.
func (b *MatrixBuilder) Add(r RawRating) bool {
	if r.ReaderID <= 0 || r.BookID <= 0 || r.Score < MinScore || r.Score > MaxScore {
		b.skipped++
		return false
	}

	row := b.scores[r.ReaderID]
	if row == nil {
		row = make(map[int]float64)
		b.scores[r.ReaderID] = row
	}
	if _, dup := row[r.BookID]; dup {
		b.skipped++
		return false
	}

	row[r.BookID] = float64(r.Score)
	b.ratings++
	return true
}

// Skip counts a record rejected upstream (for example a NULL column).
func (b *MatrixBuilder) Skip(n int) {
	if n > 0 {
		b.skipped += n
	}
}

// Skipped returns the number of rejected records so far.
func (b *MatrixBuilder) Skipped() int {
	return b.skipped
}

// Build freezes the accumulated ratings. The builder must not be used afterwards.
func (b *MatrixBuilder) Build() *Matrix {
	m := &Matrix{
		vectors: make(map[int]*RatingVector, len(b.scores)),
		readers: make([]int, 0, len(b.scores)),
		index:   make(map[int][]int),
		ratings: b.ratings,
	}

	for readerID, row := range b.scores {
		m.vectors[readerID] = NewRatingVector(readerID, row)
		m.readers = append(m.readers, readerID)
	}
	sort.Ints(m.readers)

	// Appending in ascending reader order keeps every posting list sorted.
	for _, readerID := range m.readers {
		for _, bookID := range m.vectors[readerID].books {
			m.index[bookID] = append(m.index[bookID], readerID)
		}
	}

	b.scores = nil
	return m
}

// NewMatrix builds a Matrix directly from ratings, returning the number of
// skipped records. Convenient for tests and small fixtures.
func NewMatrix(ratings []RawRating) (*Matrix, int) {
	b := NewMatrixBuilder()
	for _, r := range ratings {
		b.Add(r)
	}
	return b.Build(), b.Skipped()
}
