// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package api provides the HTTP surface: guarded file downloads and a small
inspection API over the classification engine.

Routes:

	GET /files/*                       guarded by middleware.RangeGuard
	GET /api/v1/clients                tracked clients with signatures
	GET /api/v1/clients/{id}/history   one client's records
	GET /api/v1/signals?limit=&kind=   recent signals, newest first
	GET /api/v1/signals/stream?kind=   live signals over WebSocket
	GET /api/v1/stats                  engine counters
	GET /health
	GET /metrics                       Prometheus

The /api/v1 group carries go-chi/cors and go-chi/httprate. All API
responses use the APIResponse envelope.
*/
package api
