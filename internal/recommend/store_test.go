// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu sync.Mutex

	ratings   []RawRating
	nullRows  int
	books     map[int]BookMeta
	neighbors map[int][]NeighborEntry
	runs      []BatchResult

	streamErr  error
	replaceErr error

	// When block is non-nil StreamRatings closes started and waits on block.
	block       chan struct{}
	started     chan struct{}
	startedOnce sync.Once
}

func newMemStore(ratings []RawRating, books map[int]BookMeta) *memStore {
	return &memStore{
		ratings:   ratings,
		books:     books,
		neighbors: make(map[int][]NeighborEntry),
	}
}

func (s *memStore) StreamRatings(ctx context.Context, fn func(RawRating) error) (int, error) {
	if s.block != nil {
		s.startedOnce.Do(func() { close(s.started) })
		select {
		case <-s.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if s.streamErr != nil {
		return 0, s.streamErr
	}

	s.mu.Lock()
	rows := append([]RawRating(nil), s.ratings...)
	skipped := s.nullRows
	s.mu.Unlock()

	for _, r := range rows {
		if err := fn(r); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func (s *memStore) ReaderRatings(_ context.Context, readerID int) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]int)
	for _, r := range s.ratings {
		if r.ReaderID != readerID {
			continue
		}
		if _, dup := out[r.BookID]; !dup {
			out[r.BookID] = r.Score
		}
	}
	return out, nil
}

func (s *memStore) RatingsForReaders(ctx context.Context, readerIDs []int) (map[int]map[int]int, error) {
	out := make(map[int]map[int]int, len(readerIDs))
	for _, id := range readerIDs {
		r, err := s.ReaderRatings(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, nil
}

func (s *memStore) BookMetadata(_ context.Context, ids []int) (map[int]BookMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]BookMeta, len(ids))
	for _, id := range ids {
		if b, ok := s.books[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

func (s *memStore) ReplaceNeighbors(_ context.Context, _ string, sets map[int][]NeighborEntry, _ time.Time) (int, error) {
	if s.replaceErr != nil {
		return 0, s.replaceErr
	}

	next := make(map[int][]NeighborEntry, len(sets))
	for reader, entries := range sets {
		next[reader] = append([]NeighborEntry(nil), entries...)
	}

	s.mu.Lock()
	s.neighbors = next
	s.mu.Unlock()
	return len(sets), nil
}

func (s *memStore) GetNeighbors(_ context.Context, readerID, limit int) ([]NeighborEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.neighbors[readerID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]NeighborEntry(nil), entries...), nil
}

func (s *memStore) RecordBatchRun(_ context.Context, result BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, result)
	return nil
}

func (s *memStore) neighborSnapshot() map[int][]NeighborEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int][]NeighborEntry, len(s.neighbors))
	for k, v := range s.neighbors {
		out[k] = append([]NeighborEntry(nil), v...)
	}
	return out
}

func (s *memStore) recordedRuns() []BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BatchResult(nil), s.runs...)
}

// rate builds RawRatings for one reader from book -> score pairs.
func rate(readerID int, scores map[int]int) []RawRating {
	books := make([]int, 0, len(scores))
	for b := range scores {
		books = append(books, b)
	}
	sort.Ints(books)

	out := make([]RawRating, 0, len(scores))
	for _, b := range books {
		out = append(out, RawRating{ReaderID: readerID, BookID: b, Score: scores[b]})
	}
	return out
}

func intPtr(v int) *int { return &v }

// testConfig is DefaultConfig with a small overlap gate, no shrinkage and a
// fixed worker count.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Similarity.MinOverlap = 3
	cfg.Similarity.Shrinkage = 0
	cfg.Similarity.NumWorkers = 2
	return cfg
}

// fixtureRatings: readers 1, 2 and 3 agree on books 1-3; 2 and 3 also rated
// book 10, and 3 rated book 11. Reader 4 shares nothing with anyone.
func fixtureRatings() []RawRating {
	var out []RawRating
	out = append(out, rate(1, map[int]int{1: 5, 2: 4, 3: 1})...)
	out = append(out, rate(2, map[int]int{1: 5, 2: 4, 3: 1, 10: 5})...)
	out = append(out, rate(3, map[int]int{1: 5, 2: 4, 3: 1, 10: 3, 11: 4})...)
	out = append(out, rate(4, map[int]int{20: 5})...)
	return out
}

func fixtureBooks() map[int]BookMeta {
	return map[int]BookMeta{
		1:  {ID: 1, Title: "A Court of Thorns and Roses", Author: "Sarah J. Maas", IsRomantasy: true},
		2:  {ID: 2, Title: "Fourth Wing", Author: "Rebecca Yarros", IsRomantasy: true},
		3:  {ID: 3, Title: "The Cruel Prince", Author: "Holly Black", IsRomantasy: true},
		10: {ID: 10, Title: "From Blood and Ash", Author: "Jennifer L. Armentrout", IsRomantasy: true, SpiceLevel: intPtr(3)},
		11: {ID: 11, Title: "The Serpent and the Wings of Night", Author: "Carissa Broadbent", IsRomantasy: true, SpiceLevel: intPtr(2)},
		20: {ID: 20, Title: "Dune", Author: "Frank Herbert", IsRomantasy: false},
	}
}
