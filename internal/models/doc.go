// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

/*
Package models defines the HTTP response envelope and the payloads that are
specific to the API layer.

Engine results (recommend.RecommendationList, recommend.SimilarReader,
recommend.BatchResult) are serialized as-is inside the envelope's data field;
this package only adds the wrappers the handlers need around them.
*/
package models
