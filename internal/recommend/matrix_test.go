// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"math"
	"testing"
)

func TestMatrixBuilder_SkipsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    RawRating
		kept bool
	}{
		{"valid", RawRating{ReaderID: 1, BookID: 1, Score: 3}, true},
		{"score too low", RawRating{ReaderID: 1, BookID: 2, Score: 0}, false},
		{"score too high", RawRating{ReaderID: 1, BookID: 3, Score: 6}, false},
		{"zero reader", RawRating{ReaderID: 0, BookID: 4, Score: 3}, false},
		{"negative book", RawRating{ReaderID: 1, BookID: -1, Score: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := NewMatrixBuilder()
			if got := b.Add(tt.r); got != tt.kept {
				t.Errorf("Add(%+v) = %v, want %v", tt.r, got, tt.kept)
			}
			wantSkipped := 0
			if !tt.kept {
				wantSkipped = 1
			}
			if b.Skipped() != wantSkipped {
				t.Errorf("Skipped() = %d, want %d", b.Skipped(), wantSkipped)
			}
		})
	}
}

func TestMatrixBuilder_DuplicateFirstWins(t *testing.T) {
	t.Parallel()

	m, skipped := NewMatrix([]RawRating{
		{ReaderID: 1, BookID: 7, Score: 2},
		{ReaderID: 1, BookID: 7, Score: 5},
	})
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if got := m.Vector(1).Scores[7]; got != 2 {
		t.Errorf("score = %v, want 2 (first occurrence)", got)
	}
	if m.NumRatings() != 1 {
		t.Errorf("NumRatings() = %d, want 1", m.NumRatings())
	}
}

func TestMatrixBuilder_SkipCountsUpstream(t *testing.T) {
	t.Parallel()

	b := NewMatrixBuilder()
	b.Add(RawRating{ReaderID: 1, BookID: 1, Score: 9})
	b.Skip(3)
	b.Skip(-2)
	if b.Skipped() != 4 {
		t.Errorf("Skipped() = %d, want 4", b.Skipped())
	}
}

func TestMatrix_Index(t *testing.T) {
	t.Parallel()

	m, _ := NewMatrix(fixtureRatings())

	if m.NumReaders() != 4 {
		t.Errorf("NumReaders() = %d, want 4", m.NumReaders())
	}
	if m.NumBooks() != 6 {
		t.Errorf("NumBooks() = %d, want 6", m.NumBooks())
	}

	wantReaders := []int{1, 2, 3, 4}
	for i, r := range m.Readers() {
		if r != wantReaders[i] {
			t.Fatalf("Readers() = %v, want %v", m.Readers(), wantReaders)
		}
	}

	raters := m.Raters(10)
	if len(raters) != 2 || raters[0] != 2 || raters[1] != 3 {
		t.Errorf("Raters(10) = %v, want [2 3]", raters)
	}
	if got := m.Raters(999); len(got) != 0 {
		t.Errorf("Raters(999) = %v, want empty", got)
	}
	if m.Vector(999) != nil {
		t.Error("Vector(999) should be nil")
	}
}

func TestNewRatingVector_Mean(t *testing.T) {
	t.Parallel()

	v := NewRatingVector(1, map[int]float64{3: 5, 1: 4, 2: 3})
	if math.Abs(v.Mean-4) > 1e-12 {
		t.Errorf("Mean = %v, want 4", v.Mean)
	}
	books := v.Books()
	if len(books) != 3 || books[0] != 1 || books[1] != 2 || books[2] != 3 {
		t.Errorf("Books() = %v, want [1 2 3]", books)
	}

	empty := NewRatingVector(2, map[int]float64{})
	if empty.Mean != 0 || empty.Len() != 0 {
		t.Errorf("empty vector: mean=%v len=%d", empty.Mean, empty.Len())
	}
}
