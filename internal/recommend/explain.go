// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

package recommend

import (
	"sort"
	"strings"
	"text/template"
)

// contribution is one neighbor's input to one candidate's score. The scorer
// and the explainer both read the same slice, so the explanation cannot
// drift from the number it explains.
type contribution struct {
	neighborID int
	similarity float64
	rating     int
}

// aggregate is the shared reduction over a contribution set.
type aggregate struct {
	count       int
	sumSim      float64
	sumWeighted float64
	sumRatings  int
}

func aggregateContributions(contribs []contribution) aggregate {
	var a aggregate
	for _, c := range contribs {
		a.count++
		a.sumSim += c.similarity
		a.sumWeighted += c.similarity * float64(c.rating)
		a.sumRatings += c.rating
	}
	return a
}

// averageRating is the unweighted mean; averageRating*count == sumRatings.
func (a aggregate) averageRating() float64 {
	if a.count == 0 {
		return 0
	}
	return float64(a.sumRatings) / float64(a.count)
}

var explanationTmpl = template.Must(template.New("explanation").Parse(
	`{{.Count}} similar {{if eq .Count 1}}reader{{else}}readers{{end}}` +
		`{{with .Loved}} who also loved {{index . 0}}{{if gt (len .) 1}} and {{index . 1}}{{end}}{{end}}` +
		` rated this {{printf "%.1f" .Average}}★ average`,
))

type explanationData struct {
	Count   int
	Average float64
	Loved   []string
}

// RenderExplanation renders the explanation sentence from already-computed numbers.
func RenderExplanation(count int, average float64, shared []string) string {
	var sb strings.Builder
	data := explanationData{Count: count, Average: average, Loved: shared}
	if err := explanationTmpl.Execute(&sb, data); err != nil {
		// The template is static and the data is plain values.
		return ""
	}
	return sb.String()
}

// explainer builds explanations for one target reader.
type explainer struct {
	cfg ExplainConfig

	// loved lists the books the target rated at or above the threshold, ascending.
	loved []int

	neighborRatings map[int]map[int]int
	books           map[int]BookMeta
}

func newExplainer(cfg ExplainConfig, target map[int]int, neighborRatings map[int]map[int]int, books map[int]BookMeta) *explainer {
	x := &explainer{
		cfg:             cfg,
		neighborRatings: neighborRatings,
		books:           books,
	}
	for bookID, score := range target {
		if score >= cfg.HighRatingThreshold {
			x.loved = append(x.loved, bookID)
		}
	}
	sort.Ints(x.loved)
	return x
}

// explain derives the Explanation from the same contributions and aggregate
// the scorer used.
func (x *explainer) explain(contribs []contribution, agg aggregate) Explanation {
	shared := x.sharedBooks(contribs)
	avg := agg.averageRating()
	return Explanation{
		SimilarUserCount:      agg.count,
		AverageNeighborRating: avg,
		TopSharedBooks:        shared,
		Text:                  RenderExplanation(agg.count, avg, shared),
	}
}

// sharedBooks returns titles of books the target loved that the most similar
// contributors also loved, ranked by how many of them share each book.
func (x *explainer) sharedBooks(contribs []contribution) []string {
	shared := x.sharedFavorites(contribs)
	titles := make([]string, len(shared))
	for i, b := range shared {
		titles[i] = b.Title
	}
	return titles
}

// sharedFavorites is sharedBooks with book IDs and share counts.
func (x *explainer) sharedFavorites(contribs []contribution) []SharedFavorite {
	if len(x.loved) == 0 || x.cfg.MaxSharedBooks == 0 {
		return []SharedFavorite{}
	}

	top := make([]contribution, len(contribs))
	copy(top, contribs)
	sort.Slice(top, func(i, j int) bool {
		if top[i].similarity != top[j].similarity {
			return top[i].similarity > top[j].similarity
		}
		return top[i].neighborID < top[j].neighborID
	})
	if len(top) > x.cfg.TopNeighbors {
		top = top[:x.cfg.TopNeighbors]
	}

	counts := make(map[int]int)
	for _, c := range top {
		ratings := x.neighborRatings[c.neighborID]
		for _, bookID := range x.loved {
			if ratings[bookID] >= x.cfg.HighRatingThreshold {
				counts[bookID]++
			}
		}
	}

	ranked := make([]SharedFavorite, 0, len(counts))
	for bookID, n := range counts {
		meta, ok := x.books[bookID]
		if !ok || meta.Title == "" {
			continue
		}
		ranked = append(ranked, SharedFavorite{BookID: bookID, Title: meta.Title, SharedBy: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].SharedBy != ranked[j].SharedBy {
			return ranked[i].SharedBy > ranked[j].SharedBy
		}
		if ranked[i].Title != ranked[j].Title {
			return ranked[i].Title < ranked[j].Title
		}
		return ranked[i].BookID < ranked[j].BookID
	})

	if len(ranked) > x.cfg.MaxSharedBooks {
		ranked = ranked[:x.cfg.MaxSharedBooks]
	}
	return ranked
}

// favoritesWith returns titles of books both the target and one neighbor
// rated at or above the threshold, sorted by title.
func (x *explainer) favoritesWith(neighborID int) []string {
	titles := []string{}
	ratings := x.neighborRatings[neighborID]
	for _, bookID := range x.loved {
		if ratings[bookID] < x.cfg.HighRatingThreshold {
			continue
		}
		if meta, ok := x.books[bookID]; ok && meta.Title != "" {
			titles = append(titles, meta.Title)
		}
	}
	sort.Strings(titles)
	if len(titles) > x.cfg.MaxSharedBooks {
		titles = titles[:x.cfg.MaxSharedBooks]
	}
	return titles
}
