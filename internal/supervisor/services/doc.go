// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

/*
Package services provides suture.Service wrappers for Shelfmates components.

Each wrapper implements suture's context-aware Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

BatchSchedulerService runs the similarity batch on startup (optional) and on
a fixed interval. A tick that lands while a manually triggered run is still
in progress is skipped, not queued.

HTTPServerService wraps *http.Server with graceful shutdown and an optional
drain hook that runs after the listener has stopped.

	tree.AddBatchService(services.NewBatchSchedulerService(engine, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
*/
package services
