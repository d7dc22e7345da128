// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"context"
	"math"
	"sort"
	"sync"
)

// edgeBufferSize is the capacity of the edge channel between the similarity
// workers and the neighbor selector.
const edgeBufferSize = 1024

// SimilarityEngine computes pairwise reader similarities over a Matrix.
//
// For readers a and b with co-rated books O (|O| >= MinOverlap):
//
//	pearson(a, b) = Σ (r_a - μ_a^O)(r_b - μ_b^O) / sqrt(Σ (r_a - μ_a^O)² · Σ (r_b - μ_b^O)²)
//	cosine(a, b)  = Σ (r_a - μ_a)(r_b - μ_b)     / sqrt(Σ (r_a - μ_a)²     · Σ (r_b - μ_b)²)
//
// where μ^O is the mean over O and μ is the reader's global mean; all sums
// run over O. The raw similarity is then shrunk toward zero:
//
//	adjusted = raw · n / (n + Shrinkage),  n = |O|
type SimilarityEngine struct {
	cfg SimilarityConfig
}

// NewSimilarityEngine creates a similarity engine.
func NewSimilarityEngine(cfg SimilarityConfig) *SimilarityEngine {
	if cfg.NumWorkers < 1 {
		cfg.NumWorkers = 1
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricPearson
	}
	return &SimilarityEngine{cfg: cfg}
}

// Compare computes the edge between two vectors. It returns false when the
// pair is below the overlap gate or every selected metric is degenerate.
func (s *SimilarityEngine) Compare(a, b *RatingVector) (SimilarityEdge, bool) {
	if a.ReaderID > b.ReaderID {
		a, b = b, a
	}

	xs, ys := overlap(a, b)
	n := len(xs)
	if n < s.cfg.MinOverlap || n == 0 {
		return SimilarityEdge{}, false
	}

	edge := SimilarityEdge{
		ReaderA:      a.ReaderID,
		ReaderB:      b.ReaderID,
		OverlapCount: n,
	}

	var raw float64
	computed := 0

	if s.cfg.Metric == MetricPearson || s.cfg.Metric == MetricBoth {
		if p, ok := pearson(xs, ys); ok {
			edge.Pearson = &p
			raw += p
			computed++
		}
	}
	if s.cfg.Metric == MetricCosine || s.cfg.Metric == MetricBoth {
		if c, ok := centeredCosine(xs, ys, a.Mean, b.Mean); ok {
			edge.Cosine = &c
			raw += c
			computed++
		}
	}

	if computed == 0 {
		return SimilarityEdge{}, false
	}

	// With both metrics a degenerate one contributes 0 to the average.
	if s.cfg.Metric == MetricBoth {
		raw /= 2
	}

	edge.RawSimilarity = raw
	edge.AdjustedSimilarity = Shrink(raw, n, s.cfg.Shrinkage)
	return edge, true
}

// Shrink applies the overlap shrinkage raw * n / (n + shrinkage).
func Shrink(raw float64, n int, shrinkage float64) float64 {
	if shrinkage <= 0 {
		return raw
	}
	fn := float64(n)
	return raw * fn / (fn + shrinkage)
}

// Stream enumerates every reader pair with sufficient overlap and emits one
// edge per unordered pair on the returned channel. The channel is closed when
// all workers finish.
//
// Pairs are found through the inverted index: for reader a, every book a
// rated contributes its raters b > a to a per-worker count map, so readers
// with no shared book are never touched. Readers are sharded across workers
// by position; cancellation is checked between readers, never inside a pair.
func (s *SimilarityEngine) Stream(ctx context.Context, m *Matrix) <-chan SimilarityEdge {
	out := make(chan SimilarityEdge, edgeBufferSize)
	readers := m.Readers()

	workers := s.cfg.NumWorkers
	if workers > len(readers) {
		workers = len(readers)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			counts := make(map[int]int)
			for i := worker; i < len(readers); i += workers {
				if ctx.Err() != nil {
					return
				}
				if !s.emitReader(ctx, m, readers[i], counts, out) {
					return
				}
			}
		}(w)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// emitReader sends every edge (a, b) with b > a. It returns false if the
// context was cancelled while blocked on the channel.
func (s *SimilarityEngine) emitReader(ctx context.Context, m *Matrix, a int, counts map[int]int, out chan<- SimilarityEdge) bool {
	va := m.Vector(a)

	for k := range counts {
		delete(counts, k)
	}
	for _, bookID := range va.books {
		raters := m.Raters(bookID)
		// Posting lists are ascending: skip to the first reader after a.
		start := sort.SearchInts(raters, a+1)
		for _, b := range raters[start:] {
			counts[b]++
		}
	}

	for b, shared := range counts {
		if shared < s.cfg.MinOverlap {
			continue
		}
		edge, ok := s.Compare(va, m.Vector(b))
		if !ok {
			continue
		}
		select {
		case out <- edge:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// ComputeAll drains Stream into a slice. Intended for tests and small inputs.
func (s *SimilarityEngine) ComputeAll(ctx context.Context, m *Matrix) ([]SimilarityEdge, error) {
	var edges []SimilarityEdge
	for e := range s.Stream(ctx, m) {
		edges = append(edges, e)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return edges, nil
}

// overlap returns the paired scores of books both vectors rated, in
// ascending book order.
func overlap(a, b *RatingVector) (xs, ys []float64) {
	i, j := 0, 0
	for i < len(a.books) && j < len(b.books) {
		switch {
		case a.books[i] < b.books[j]:
			i++
		case a.books[i] > b.books[j]:
			j++
		default:
			book := a.books[i]
			xs = append(xs, a.Scores[book])
			ys = append(ys, b.Scores[book])
			i++
			j++
		}
	}
	return xs, ys
}

// pearson is the correlation of xs and ys centered on their own means.
// Zero variance on either side is degenerate and reported as !ok.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	return centeredCorrelation(xs, ys, sumX/n, sumY/n)
}

// centeredCosine is the cosine of xs and ys after subtracting each reader's
// global mean.
func centeredCosine(xs, ys []float64, meanX, meanY float64) (float64, bool) {
	return centeredCorrelation(xs, ys, meanX, meanY)
}

func centeredCorrelation(xs, ys []float64, cx, cy float64) (float64, bool) {
	var num, denX, denY float64
	for i := range xs {
		dx := xs[i] - cx
		dy := ys[i] - cy
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}

	if denX == 0 || denY == 0 {
		return 0, false
	}

	r := num / math.Sqrt(denX*denY)
	if math.IsNaN(r) {
		return 0, false
	}

	// Rounding can push |r| a hair past 1.
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}
