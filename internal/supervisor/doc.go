// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

/*
Package supervisor provides process supervision for Shelfmates using suture v4.

The tree restarts crashed services with backoff and shuts everything down in
order when the root context is canceled:

	RootSupervisor ("shelfmates")
	├── BatchSupervisor ("batch-layer")
	│   └── BatchSchedulerService (if BATCH_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (start, stop, panic, backoff) are logged through the slog
adapter returned by logging.NewSlogLogger via sutureslog.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddBatchService(services.NewBatchSchedulerService(engine, schedCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

See the services subpackage for the service wrappers.
*/
package supervisor
