// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"

	"github.com/tomtom215/shelfmates/internal/cache"
)

// NeighborSelector keeps the top-K neighbors per reader from an edge stream.
//
// It is a single consumer: Offer and Consume must not be called
// concurrently, which is what lets the per-reader heaps go unlocked.
type NeighborSelector struct {
	k             int
	minSimilarity float64
	heaps         map[int]*cache.BoundedHeap[NeighborEntry]
	offered       int64
}

// NewNeighborSelector creates a selector retaining k neighbors per reader.
func NewNeighborSelector(cfg NeighborConfig) *NeighborSelector {
	k := cfg.K
	if k < 1 {
		k = 1
	}
	return &NeighborSelector{
		k:             k,
		minSimilarity: cfg.MinSimilarity,
		heaps:         make(map[int]*cache.BoundedHeap[NeighborEntry]),
	}
}

// betterNeighbor orders by adjusted similarity, then overlap, then lower neighbor ID.
func betterNeighbor(a, b NeighborEntry) bool {
	if a.AdjustedSimilarity != b.AdjustedSimilarity {
		return a.AdjustedSimilarity > b.AdjustedSimilarity
	}
	if a.OverlapCount != b.OverlapCount {
		return a.OverlapCount > b.OverlapCount
	}
	return a.NeighborID < b.NeighborID
}

// Offer adds an edge to both endpoints' candidate sets.
func (s *NeighborSelector) Offer(e SimilarityEdge) {
	s.offered++
	if e.AdjustedSimilarity <= s.minSimilarity {
		return
	}
	s.offerTo(e.ReaderA, e.ReaderB, e)
	s.offerTo(e.ReaderB, e.ReaderA, e)
}

func (s *NeighborSelector) offerTo(reader, neighbor int, e SimilarityEdge) {
	h := s.heaps[reader]
	if h == nil {
		h = cache.NewBoundedHeap(s.k, betterNeighbor)
		s.heaps[reader] = h
	}
	h.Offer(NeighborEntry{
		ReaderID:           reader,
		NeighborID:         neighbor,
		AdjustedSimilarity: e.AdjustedSimilarity,
		RawSimilarity:      e.RawSimilarity,
		OverlapCount:       e.OverlapCount,
	})
}

// Consume drains edges until the channel closes or ctx is cancelled.
// It returns the number of edges received.
func (s *NeighborSelector) Consume(ctx context.Context, edges <-chan SimilarityEdge) (int64, error) {
	var n int64
	for {
		select {
		case e, ok := <-edges:
			if !ok {
				return n, nil
			}
			s.Offer(e)
			n++
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
}

// Offered returns the number of edges offered so far, including filtered ones.
func (s *NeighborSelector) Offered() int64 {
	return s.offered
}

// Finalize returns the ranked neighbor set for every reader in readers.
// Readers without edges map to an empty slice so their stale rows get
// replaced too. The selector is reset afterwards.
func (s *NeighborSelector) Finalize(readers []int) map[int][]NeighborEntry {
	out := make(map[int][]NeighborEntry, len(readers))
	for _, r := range readers {
		out[r] = []NeighborEntry{}
	}

	for reader, h := range s.heaps {
		entries := h.Drain()
		for i := range entries {
			entries[i].Rank = i + 1
		}
		out[reader] = entries
	}

	s.heaps = make(map[int]*cache.BoundedHeap[NeighborEntry])
	s.offered = 0
	return out
}
