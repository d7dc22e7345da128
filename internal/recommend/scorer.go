// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Valid age categories for Filters.AgeCategory.
var validAgeCategories = map[string]bool{
	"adult":     true,
	"new_adult": true,
	"ya":        true,
}

// Validate checks that the filter bounds are coherent.
func (f *Filters) Validate() error {
	if f.SpiceMin != nil && (*f.SpiceMin < 0 || *f.SpiceMin > 5) {
		return fmt.Errorf("%w: spice_min must be in [0, 5]", ErrInvalidFilters)
	}
	if f.SpiceMax != nil && (*f.SpiceMax < 0 || *f.SpiceMax > 5) {
		return fmt.Errorf("%w: spice_max must be in [0, 5]", ErrInvalidFilters)
	}
	if f.SpiceMin != nil && f.SpiceMax != nil && *f.SpiceMin > *f.SpiceMax {
		return fmt.Errorf("%w: spice_min must not exceed spice_max", ErrInvalidFilters)
	}
	if f.AgeCategory != "" && !validAgeCategories[f.AgeCategory] {
		return fmt.Errorf("%w: age_category must be adult, new_adult or ya", ErrInvalidFilters)
	}
	return nil
}

// compiledFilters is Filters with tropes lowered into sets.
type compiledFilters struct {
	spiceMin, spiceMax *int
	ageCategory        string
	include, exclude   map[string]bool
}

func compileFilters(f Filters) compiledFilters {
	return compiledFilters{
		spiceMin:    f.SpiceMin,
		spiceMax:    f.SpiceMax,
		ageCategory: f.AgeCategory,
		include:     tropeSet(f.TropeInclude),
		exclude:     tropeSet(f.TropeExclude),
	}
}

func tropeSet(tropes []string) map[string]bool {
	if len(tropes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tropes))
	for _, t := range tropes {
		if t = normalizeKey(t); t != "" {
			set[t] = true
		}
	}
	return set
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// accepts reports whether a book passes every active filter.
func (f compiledFilters) accepts(b *BookMeta) bool {
	if f.spiceMin != nil || f.spiceMax != nil {
		if b.SpiceLevel == nil {
			return false
		}
		if f.spiceMin != nil && *b.SpiceLevel < *f.spiceMin {
			return false
		}
		if f.spiceMax != nil && *b.SpiceLevel > *f.spiceMax {
			return false
		}
	}

	if f.ageCategory != "" && b.AgeCategory != f.ageCategory {
		return false
	}

	if len(f.include) == 0 && len(f.exclude) == 0 {
		return true
	}

	matched := false
	for _, t := range b.Tropes {
		key := normalizeKey(t)
		if f.exclude[key] {
			return false
		}
		if f.include[key] {
			matched = true
		}
	}
	return len(f.include) == 0 || matched
}

// ScoreInput is everything needed to score one reader. It is a plain value
// snapshot; scoring performs no I/O.
type ScoreInput struct {
	ReaderID int

	// Ratings are the target reader's ratings, book -> score.
	Ratings map[int]int

	// Neighbors is the persisted neighbor set in rank order.
	Neighbors []NeighborEntry

	// NeighborRatings holds each neighbor's ratings, neighbor -> book -> score.
	NeighborRatings map[int]map[int]int

	// Books holds catalog metadata for every candidate and for the books the
	// target rated highly.
	Books map[int]BookMeta

	Filters Filters

	// Limit is the requested list length, already resolved by Config.EffectiveLimit.
	Limit int
}

// Scorer predicts ratings for unread Romantasy books from a reader's neighbors.
//
// For candidate b and contributing set V (neighbors with positive similarity
// who rated b):
//
//	predicted  = Σ sim(v)·r(v,b) / Σ sim(v)
//	confidence = min(|V| / Ns, 1) · min(Σ sim(v) / Ss, 1)
//
// with Ns and Ss the configured saturation points.
type Scorer struct {
	scoring ScoringConfig
	explain ExplainConfig
}

// NewScorer creates a scorer.
func NewScorer(scoring ScoringConfig, explain ExplainConfig) *Scorer {
	return &Scorer{scoring: scoring, explain: explain}
}

// scoredCandidate is an unranked prediction.
type scoredCandidate struct {
	bookID     int
	predicted  float64
	confidence float64
	contribs   []contribution
	agg        aggregate
}

// Score ranks candidates for the target reader. It returns an empty slice
// when nothing is scoreable; the caller maps that to insufficient data.
func (s *Scorer) Score(in ScoreInput) []Recommendation {
	positive := positiveNeighbors(in)
	if len(positive) == 0 {
		return []Recommendation{}
	}

	filters := compileFilters(in.Filters)

	// Collect contributions per candidate in neighbor rank order.
	byBook := make(map[int][]contribution)
	for _, n := range positive {
		for bookID, rating := range in.NeighborRatings[n.NeighborID] {
			if _, read := in.Ratings[bookID]; read {
				continue
			}
			if rating < MinScore || rating > MaxScore {
				continue
			}
			byBook[bookID] = append(byBook[bookID], contribution{
				neighborID: n.NeighborID,
				similarity: n.AdjustedSimilarity,
				rating:     rating,
			})
		}
	}

	candidates := make([]scoredCandidate, 0, len(byBook))
	for bookID, contribs := range byBook {
		meta, ok := in.Books[bookID]
		if !ok || !meta.IsRomantasy || !filters.accepts(&meta) {
			continue
		}
		if c, ok := s.evaluate(bookID, contribs); ok {
			candidates = append(candidates, c)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.predicted != b.predicted {
			return a.predicted > b.predicted
		}
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		return a.bookID < b.bookID
	})

	limit := in.Limit
	if limit <= 0 || limit > s.scoring.MaxResults {
		limit = s.scoring.MaxResults
	}

	x := newExplainer(s.explain, in.Ratings, in.NeighborRatings, in.Books)
	perAuthor := make(map[string]int)
	out := make([]Recommendation, 0, min(limit, len(candidates)))

	for i := range candidates {
		if len(out) >= limit {
			break
		}
		c := &candidates[i]
		meta := in.Books[c.bookID]

		if author := normalizeKey(meta.Author); author != "" {
			if perAuthor[author] >= s.scoring.DiversityCapPerAuthor {
				continue
			}
			perAuthor[author]++
		}

		out = append(out, Recommendation{
			BookID:          c.bookID,
			Title:           meta.Title,
			Author:          meta.Author,
			SpiceLevel:      meta.SpiceLevel,
			AgeCategory:     meta.AgeCategory,
			Tropes:          meta.Tropes,
			PredictedRating: clampScore(c.predicted),
			Confidence:      c.confidence,
			Explanation:     x.explain(c.contribs, c.agg),
		})
	}

	return out
}

// ScoreBook explains one book for the target reader. It uses the same
// contribution set and arithmetic as Score, so the numbers match the entry
// Score would produce for that book. Filters and the author cap do not apply.
func (s *Scorer) ScoreBook(in ScoreInput, bookID int) *BookExplanation {
	meta := in.Books[bookID]
	out := &BookExplanation{
		ReaderID:        in.ReaderID,
		BookID:          bookID,
		Title:           meta.Title,
		Author:          meta.Author,
		Status:          StatusInsufficientData,
		Contributors:    []Contributor{},
		SharedFavorites: []SharedFavorite{},
		Explanation:     Explanation{TopSharedBooks: []string{}},
	}

	if _, read := in.Ratings[bookID]; read {
		out.Status = StatusAlreadyRated
		return out
	}
	if !meta.IsRomantasy {
		out.Status = StatusNotEligible
		return out
	}

	var contribs []contribution
	for _, n := range positiveNeighbors(in) {
		rating, ok := in.NeighborRatings[n.NeighborID][bookID]
		if !ok || rating < MinScore || rating > MaxScore {
			continue
		}
		contribs = append(contribs, contribution{
			neighborID: n.NeighborID,
			similarity: n.AdjustedSimilarity,
			rating:     rating,
		})
	}

	c, ok := s.evaluate(bookID, contribs)
	if !ok {
		return out
	}

	x := newExplainer(s.explain, in.Ratings, in.NeighborRatings, in.Books)
	out.Status = StatusOK
	out.PredictedRating = clampScore(c.predicted)
	out.Confidence = c.confidence
	out.Explanation = x.explain(c.contribs, c.agg)
	out.SharedFavorites = x.sharedFavorites(c.contribs)
	for _, cb := range c.contribs {
		out.Contributors = append(out.Contributors, Contributor{
			ReaderID:   cb.neighborID,
			Similarity: cb.similarity,
			Rating:     cb.rating,
		})
	}
	return out
}

// positiveNeighbors keeps the neighbors allowed to contribute, in rank order.
func positiveNeighbors(in ScoreInput) []NeighborEntry {
	positive := make([]NeighborEntry, 0, len(in.Neighbors))
	for _, n := range in.Neighbors {
		if n.AdjustedSimilarity > 0 && n.NeighborID != in.ReaderID {
			positive = append(positive, n)
		}
	}
	return positive
}

// evaluate turns a contribution set into a prediction, or reports that the
// book has too little support to be scored.
func (s *Scorer) evaluate(bookID int, contribs []contribution) (scoredCandidate, bool) {
	if len(contribs) == 0 || len(contribs) < s.scoring.MinNeighborsPerBook {
		return scoredCandidate{}, false
	}
	agg := aggregateContributions(contribs)
	if agg.sumSim <= 0 {
		return scoredCandidate{}, false
	}
	return scoredCandidate{
		bookID:     bookID,
		predicted:  agg.sumWeighted / agg.sumSim,
		confidence: s.confidence(agg),
		contribs:   contribs,
		agg:        agg,
	}, true
}

// confidence grows with both contributor count and similarity mass and is
// bounded to [0, 1].
func (s *Scorer) confidence(agg aggregate) float64 {
	countFactor := math.Min(float64(agg.count)/s.scoring.ConfidenceNeighborSaturation, 1)
	simFactor := math.Min(agg.sumSim/s.scoring.ConfidenceSimilaritySaturation, 1)
	if simFactor < 0 {
		simFactor = 0
	}
	return countFactor * simFactor
}

// clampScore guards the [1, 5] range against floating-point drift.
func clampScore(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// CandidateBooks returns the IDs of books rated by positive neighbors that the
// target has not rated, plus the books the target rated at or above
// threshold. These are the IDs the caller must resolve metadata for.
func CandidateBooks(readerID int, ratings map[int]int, neighbors []NeighborEntry, neighborRatings map[int]map[int]int, threshold int) []int {
	seen := make(map[int]bool)
	for _, n := range neighbors {
		if n.AdjustedSimilarity <= 0 || n.NeighborID == readerID {
			continue
		}
		for bookID := range neighborRatings[n.NeighborID] {
			if _, read := ratings[bookID]; !read {
				seen[bookID] = true
			}
		}
	}
	for bookID, score := range ratings {
		if score >= threshold {
			seen[bookID] = true
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
