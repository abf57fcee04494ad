// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Classification Metrics
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeguard_classifications_total",
			Help: "Total number of range request classification passes by outcome",
		},
		[]string{"outcome"}, // accepted, rejected, bypassed, error
	)

	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rangeguard_classification_duration_seconds",
			Help:    "Duration of one classification pass including history scans",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	SignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeguard_signals_total",
			Help: "Total number of classification signals emitted",
		},
		[]string{"kind", "reason"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeguard_rejections_total",
			Help: "Total number of trait violations",
		},
		[]string{"kind"}, // banned, allowed
	)

	TrackedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rangeguard_tracked_clients",
			Help: "Number of client histories in the store",
		},
	)

	HistoryStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeguard_history_store_errors_total",
			Help: "Total number of history store failures",
		},
		[]string{"operation"},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeguard_notifications_total",
			Help: "Total number of signal deliveries by notifier and status",
		},
		[]string{"notifier", "status"}, // success, error
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rangeguard_notification_duration_seconds",
			Help:    "Duration of signal deliveries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"notifier"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Storage Maintenance Metrics
	BadgerGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeguard_badger_gc_runs_total",
			Help: "Total number of Badger value log GC cycles",
		},
		[]string{"status"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordClassification records the outcome and duration of one pass.
func RecordClassification(outcome string, duration time.Duration) {
	ClassificationsTotal.WithLabelValues(outcome).Inc()
	ClassificationDuration.Observe(duration.Seconds())
}

// RecordSignal counts an emitted classification signal.
func RecordSignal(kind, reason string) {
	SignalsTotal.WithLabelValues(kind, reason).Inc()
}

// RecordRejection counts a trait violation.
func RecordRejection(kind string) {
	RejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordStoreError counts a failed history store operation.
func RecordStoreError(operation string) {
	HistoryStoreErrors.WithLabelValues(operation).Inc()
}

// RecordNotification records one notifier delivery attempt.
func RecordNotification(notifier string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsTotal.WithLabelValues(notifier, status).Inc()
	NotificationDuration.WithLabelValues(notifier).Observe(duration.Seconds())
}

// RecordBadgerGC counts a value log GC cycle.
func RecordBadgerGC(err error) {
	if err != nil {
		BadgerGCRuns.WithLabelValues("error").Inc()
		return
	}
	BadgerGCRuns.WithLabelValues("success").Inc()
}
