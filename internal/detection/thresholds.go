// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
	"github.com/tomtom215/rangeguard/internal/rangeheader"
)

// checkParts fires once per request when it lists more than MaxParts ranges.
func (e *Engine) checkParts(req *Request, parts int) {
	if e.cfg.MaxParts > 0 && parts > e.cfg.MaxParts {
		e.overflow(req, OverflowParts)
	}
}

// checkSize fires when a closed range ends past MaxResourceSize. Open
// ranges have no end to compare and never overflow.
func (e *Engine) checkSize(req *Request, pair rangeheader.Pair) {
	if e.cfg.MaxResourceSize <= 0 || pair.To.IsUnbounded() {
		return
	}
	if pair.To.Greater(rangeheader.Offset(e.cfg.MaxResourceSize)) {
		e.overflow(req, OverflowSize)
	}
}

// checkDeadline compares ts against the first record of the most recently
// created bucket. That bucket may belong to another client.
func (e *Engine) checkDeadline(ctx context.Context, req *Request, w http.ResponseWriter, next Continuation, ts int64) error {
	if e.cfg.MaxDelay <= 0 {
		return nil
	}

	ref, ok, err := e.store.LatestBucketHead(ctx)
	if err != nil {
		metrics.RecordStoreError("latest_bucket_head")
		return fmt.Errorf("read deadline reference: %w", err)
	}
	if !ok || ts-ref.Timestamp <= e.cfg.MaxDelay {
		return nil
	}

	e.countSignal(KindDeadlineReached)
	metrics.RecordSignal(string(KindDeadlineReached), "")
	logging.Debug().
		Str("client", req.ClientID).
		Int64("delta_ms", ts-ref.Timestamp).
		Int64("max_delay_ms", e.cfg.MaxDelay).
		Msg("deadline reached")

	if e.hooks.OnDeadlineReached != nil {
		e.hooks.OnDeadlineReached(req, w, next)
	}
	return nil
}

func (e *Engine) overflow(req *Request, kind OverflowKind) {
	e.countSignal(KindRangeOverflow)
	metrics.RecordSignal(string(KindRangeOverflow), string(kind))
	logging.Debug().
		Str("client", req.ClientID).
		Str("range", req.Range).
		Str("kind", string(kind)).
		Msg("range overflow")

	if e.hooks.OnRangeOverflow != nil {
		e.hooks.OnRangeOverflow(req, kind)
	}
}
