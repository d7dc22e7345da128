// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

// Package recommend implements user-user collaborative filtering for
// Romantasy books.
//
// # Pipeline
//
// A batch run, driven by the Orchestrator, takes a snapshot of ratings from
// the Store and produces each reader's top-K neighbor set:
//
//  1. MatrixBuilder turns raw ratings into per-reader vectors, skipping
//     malformed rows (missing ids, scores outside 1..5, duplicates).
//  2. SimilarityEngine enumerates candidate pairs through the inverted index
//     (book -> raters) and streams SimilarityEdge values from a worker pool.
//     Pairs below MinOverlap or with zero variance produce no edge.
//  3. NeighborSelector keeps a bounded heap per reader and assigns dense ranks.
//  4. The Store replaces the whole neighbor table in one transaction.
//
// Recommendations are computed on demand by the Scorer from the persisted
// neighbor sets: only positively similar neighbors contribute, candidates
// must be Romantasy books the reader has not rated, and at most
// DiversityCapPerAuthor books per author are returned.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), db, cacheStore, logger)
//	if err != nil {
//	    return err
//	}
//	result, err := engine.RunSimilarityBatch(ctx)
//	list, err := engine.GetRecommendations(ctx, readerID, recommend.Filters{}, 20)
//
// # Thread Safety
//
// Engine is safe for concurrent use. Only one batch runs at a time; a second
// caller gets ErrBatchAlreadyRunning immediately. Scoring holds no locks and
// reads whichever neighbor table is committed.
package recommend
