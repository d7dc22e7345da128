// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

/*
Package api exposes the recommendation engine over HTTP using the chi router.

Endpoints (all JSON, wrapped in models.APIResponse):

	GET  /api/v1/readers/{readerID}/recommendations   ranked Romantasy picks
	GET  /api/v1/readers/{readerID}/recommendations/{bookID}/explanation
	                                                   why one book scores as it does
	GET  /api/v1/readers/{readerID}/neighbors          nearest readers and shared favorites
	POST /api/v1/batch/runs                            start a similarity batch
	GET  /api/v1/batch/runs                            recent batch history
	GET  /api/v1/batch/status                          orchestrator state
	GET  /api/v1/health, /health/live, /health/ready   probes
	GET  /metrics                                      Prometheus exposition

Recommendation query parameters: limit, spice_min, spice_max, age_category,
trope_include and trope_exclude (comma separated or repeated).

POST /api/v1/batch/runs claims the run slot, continues the batch in the
background and answers 202 with the run_id.
With ?wait=true it blocks and returns the BatchResult. A run that is already
in progress yields 409 ALREADY_RUNNING either way.
*/
package api
