// Shelfmates - Romantasy Reader Similarity and Book Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfmates

/*
Package middleware provides HTTP middleware shared by the Shelfmates API.

All middleware has the chi signature func(http.Handler) http.Handler.

  - RequestID: accepts or generates X-Request-ID and stores it in the
    request context and the logging context
  - PrometheusMetrics: records request count, latency and in-flight gauge
    labeled by the matched chi route pattern, not the raw path, so reader IDs
    do not explode label cardinality
  - AccessLog: one structured zerolog line per request

Recommended order:

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
