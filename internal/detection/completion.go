// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"net/http"

	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
	"github.com/tomtom215/rangeguard/internal/rangeheader"
)

// checkCompletion fires OnDownloaded when the client's ranges, in arrival
// order, form one gapless span ending exactly at MaxResourceSize.
func (e *Engine) checkCompletion(req *Request, w http.ResponseWriter, next Continuation, own []history.Record) {
	if e.cfg.MaxResourceSize <= 0 || e.hooks.OnDownloaded == nil {
		return
	}
	if !Downloaded(history.Clone(own), e.cfg.MaxResourceSize) {
		return
	}

	e.countSignal(KindDownloaded)
	metrics.RecordSignal(string(KindDownloaded), "")
	logging.Debug().
		Str("client", req.ClientID).
		Int("records", len(own)).
		Msg("resource fully downloaded")

	e.hooks.OnDownloaded(req, w, next)
}

// Downloaded reports whether records cover [.., size] contiguously: every
// record starts right after the previous one ends and the last one ends at
// size. Records are not sorted or merged first.
func Downloaded(records []history.Record, size int64) bool {
	if len(records) == 0 {
		return false
	}
	for i := 1; i < len(records); i++ {
		want, ok := records[i-1].To.Next()
		if !ok || !want.Equal(records[i].From) {
			return false
		}
	}
	return records[len(records)-1].To.Equal(rangeheader.Offset(size))
}
