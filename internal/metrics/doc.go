// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered with the default registry through promauto when the
package is loaded, and small Record* helpers keep label handling in one place.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Classification outcomes, durations and emitted signals
  - Trait violations and history store failures
  - Notifier deliveries and circuit breaker state
  - Badger value log garbage collection

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Example Queries

Signals per minute by kind:

	sum by (kind) (rate(rangeguard_signals_total[1m]))

Rejection ratio:

	sum(rate(rangeguard_classifications_total{outcome="rejected"}[5m]))
	  / sum(rate(rangeguard_classifications_total[5m]))
*/
package metrics
