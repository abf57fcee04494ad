// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package middleware provides HTTP middleware components for the application.

Key Components:

  - RangeGuard: classifies every request carrying a Range header with a
    detection.Engine and attaches the client's accepted chunks to the context
  - Request ID: UUID-based request tracking for log correlation
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

The download route is wrapped as:

	r.Route("/files", func(r chi.Router) {
	    r.Use(chiMiddleware(middleware.PrometheusMetrics))
	    r.Use(middleware.RangeGuard(engine, middleware.RangeGuardOptions{}))
	    r.Get("/*", fileHandler)
	})

Flow Control:

The continuation handed to the engine does not call the next handler
directly. It only records that a hook asked for the request to continue;
the next handler runs once after Classify returns, outside the engine lock.

  - Accepted or Bypassed: next runs unless a hook wrote a response without
    asking to continue
  - Rejected: 403 with a JSON error body unless a hook already responded
  - Storage failure: logged, next runs (fail open)

Inside the downstream handler:

	chunks := middleware.ChunksFromContext(r.Context())
*/
package middleware
