// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"context"
	"fmt"

	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/metrics"
)

// validateTraits checks cur against the client's previous record. A client
// without history passes. Banned traits are evaluated before allowed ones,
// each list in order, and the first violation wins.
func (e *Engine) validateTraits(ctx context.Context, clientID string, cur history.Record) (*Rejection, error) {
	if len(e.cfg.BannedTraits) == 0 && len(e.cfg.AllowedTraits) == 0 {
		return nil, nil
	}

	prev, ok, err := e.store.Last(ctx, clientID)
	if err != nil {
		metrics.RecordStoreError("last")
		return nil, fmt.Errorf("read last record for %s: %w", clientID, err)
	}
	if !ok {
		return nil, nil
	}

	for i, banned := range e.cfg.BannedTraits {
		if banned(prev, cur) {
			return &Rejection{Kind: RejectionBanned, Trait: i, Previous: prev, Current: cur}, nil
		}
	}
	for i, allowed := range e.cfg.AllowedTraits {
		if !allowed(prev, cur) {
			return &Rejection{Kind: RejectionAllowed, Trait: i, Previous: prev, Current: cur}, nil
		}
	}
	return nil, nil
}
