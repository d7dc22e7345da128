// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"testing"
)

func edge(a, b int, sim float64, overlap int) SimilarityEdge {
	if a > b {
		a, b = b, a
	}
	return SimilarityEdge{ReaderA: a, ReaderB: b, RawSimilarity: sim, AdjustedSimilarity: sim, OverlapCount: overlap}
}

func neighborIDs(entries []NeighborEntry) []int {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.NeighborID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNeighborSelector_TopK(t *testing.T) {
	t.Parallel()

	s := NewNeighborSelector(NeighborConfig{K: 3})
	s.Offer(edge(1, 2, 0.1, 5))
	s.Offer(edge(1, 3, 0.9, 5))
	s.Offer(edge(1, 4, 0.5, 5))
	s.Offer(edge(1, 5, 0.7, 5))
	s.Offer(edge(1, 6, 0.3, 5))

	sets := s.Finalize([]int{1, 2, 3, 4, 5, 6})

	got := sets[1]
	if want := []int{3, 5, 4}; !equalInts(neighborIDs(got), want) {
		t.Fatalf("neighbors of 1 = %v, want %v", neighborIDs(got), want)
	}
	for i, e := range got {
		if e.Rank != i+1 {
			t.Errorf("entry %d rank = %d, want %d", i, e.Rank, i+1)
		}
		if e.ReaderID != 1 {
			t.Errorf("entry %d ReaderID = %d, want 1", i, e.ReaderID)
		}
	}

	// Edges are symmetric: 2 sees 1 even though 1 dropped 2.
	if want := []int{1}; !equalInts(neighborIDs(sets[2]), want) {
		t.Errorf("neighbors of 2 = %v, want %v", neighborIDs(sets[2]), want)
	}
}

func TestNeighborSelector_TieBreak(t *testing.T) {
	t.Parallel()

	s := NewNeighborSelector(NeighborConfig{K: 3})
	s.Offer(edge(1, 9, 0.5, 6))
	s.Offer(edge(1, 7, 0.5, 6))
	s.Offer(edge(1, 8, 0.5, 12))
	s.Offer(edge(1, 2, 0.5, 6))

	got := neighborIDs(s.Finalize([]int{1})[1])
	// Higher overlap first, then lower neighbor ID.
	if want := []int{8, 2, 7}; !equalInts(got, want) {
		t.Errorf("neighbors = %v, want %v", got, want)
	}
}

func TestNeighborSelector_MinSimilarity(t *testing.T) {
	t.Parallel()

	s := NewNeighborSelector(NeighborConfig{K: 10, MinSimilarity: 0})
	s.Offer(edge(1, 2, 0.4, 5))
	s.Offer(edge(1, 3, 0, 5))
	s.Offer(edge(1, 4, -0.6, 5))

	if s.Offered() != 3 {
		t.Errorf("Offered() = %d, want 3", s.Offered())
	}

	sets := s.Finalize([]int{1, 2, 3, 4})
	if want := []int{2}; !equalInts(neighborIDs(sets[1]), want) {
		t.Errorf("neighbors of 1 = %v, want %v", neighborIDs(sets[1]), want)
	}
	if len(sets[4]) != 0 {
		t.Errorf("reader 4 should have an empty set, got %v", neighborIDs(sets[4]))
	}
}

func TestNeighborSelector_FinalizeCoversEveryReader(t *testing.T) {
	t.Parallel()

	s := NewNeighborSelector(NeighborConfig{K: 5})
	s.Offer(edge(1, 2, 0.4, 5))

	sets := s.Finalize([]int{1, 2, 3})
	if len(sets) != 3 {
		t.Fatalf("Finalize returned %d readers, want 3", len(sets))
	}
	if got, ok := sets[3]; !ok || got == nil || len(got) != 0 {
		t.Errorf("reader 3 should map to an empty non-nil slice, got %v (present=%v)", got, ok)
	}

	// Selector is reset.
	if again := s.Finalize([]int{1}); len(again[1]) != 0 {
		t.Errorf("selector not reset after Finalize")
	}
}

func TestNeighborSelector_Consume(t *testing.T) {
	t.Parallel()

	edges := make(chan SimilarityEdge, 3)
	edges <- edge(1, 2, 0.3, 5)
	edges <- edge(1, 3, 0.6, 5)
	edges <- edge(2, 3, 0.2, 5)
	close(edges)

	s := NewNeighborSelector(NeighborConfig{K: 2})
	n, err := s.Consume(context.Background(), edges)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Consume() = %d, want 3", n)
	}

	sets := s.Finalize([]int{1, 2, 3})
	if want := []int{1, 2}; !equalInts(neighborIDs(sets[3]), want) {
		t.Errorf("neighbors of 3 = %v, want %v", neighborIDs(sets[3]), want)
	}
}

func TestNeighborSelector_ConsumeCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewNeighborSelector(NeighborConfig{K: 2})
	if _, err := s.Consume(ctx, make(chan SimilarityEdge)); err == nil {
		t.Error("Consume() on a cancelled context should return an error")
	}
}
