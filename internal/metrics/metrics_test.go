// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/files/a.bin", "206"))

	RecordAPIRequest("GET", "/files/a.bin", "206", 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/files/a.bin", "206"))
	if after-before != 1 {
		t.Errorf("api_requests_total increased by %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordClassification(t *testing.T) {
	tests := []string{"accepted", "rejected", "bypassed", "error"}

	for _, outcome := range tests {
		t.Run(outcome, func(t *testing.T) {
			before := testutil.ToFloat64(ClassificationsTotal.WithLabelValues(outcome))
			RecordClassification(outcome, time.Millisecond)
			after := testutil.ToFloat64(ClassificationsTotal.WithLabelValues(outcome))
			if after-before != 1 {
				t.Errorf("classifications{%s} increased by %v, want 1", outcome, after-before)
			}
		})
	}
}

func TestRecordSignalAndRejection(t *testing.T) {
	beforeSignal := testutil.ToFloat64(SignalsTotal.WithLabelValues("robotic", "malformed"))
	beforeReject := testutil.ToFloat64(RejectionsTotal.WithLabelValues("banned"))

	RecordSignal("robotic", "malformed")
	RecordSignal("robotic", "malformed")
	RecordRejection("banned")

	if got := testutil.ToFloat64(SignalsTotal.WithLabelValues("robotic", "malformed")) - beforeSignal; got != 2 {
		t.Errorf("signals increased by %v, want 2", got)
	}
	if got := testutil.ToFloat64(RejectionsTotal.WithLabelValues("banned")) - beforeReject; got != 1 {
		t.Errorf("rejections increased by %v, want 1", got)
	}
}

func TestRecordNotification(t *testing.T) {
	beforeOK := testutil.ToFloat64(NotificationsTotal.WithLabelValues("webhook", "success"))
	beforeErr := testutil.ToFloat64(NotificationsTotal.WithLabelValues("webhook", "error"))

	RecordNotification("webhook", time.Millisecond, nil)
	RecordNotification("webhook", time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(NotificationsTotal.WithLabelValues("webhook", "success")) - beforeOK; got != 1 {
		t.Errorf("success deliveries increased by %v, want 1", got)
	}
	if got := testutil.ToFloat64(NotificationsTotal.WithLabelValues("webhook", "error")) - beforeErr; got != 1 {
		t.Errorf("failed deliveries increased by %v, want 1", got)
	}
}

func TestRecordBadgerGC(t *testing.T) {
	before := testutil.ToFloat64(BadgerGCRuns.WithLabelValues("error"))
	RecordBadgerGC(errors.New("disk full"))
	if got := testutil.ToFloat64(BadgerGCRuns.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("gc errors increased by %v, want 1", got)
	}
}
