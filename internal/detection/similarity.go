// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
)

// checkSimilarity compares the requesting client's byte and timing
// signatures with every other client. Matching is exact string equality.
// Timing matches are flattened per window: a matching client with n records
// is listed n-1 times.
func (e *Engine) checkSimilarity(req *Request, buckets []history.Bucket, own []history.Record) {
	byteKey := history.ByteSignature(own)
	timingKey := history.TimingSignature(own)

	var byteMatches, timingMatches []string
	for _, b := range buckets {
		if b.ClientID == req.ClientID {
			continue
		}
		if byteKey != "" && history.ByteSignature(b.Records) == byteKey {
			byteMatches = append(byteMatches, b.ClientID)
		}
		if timingKey != "" && history.TimingSignature(b.Records) == timingKey {
			for range len(b.Records) - 1 {
				timingMatches = append(timingMatches, b.ClientID)
			}
		}
	}

	if len(byteMatches) > 0 {
		e.similar(req, KindSimilarTrait, byteMatches)
		if e.hooks.OnSimilarTrait != nil {
			e.hooks.OnSimilarTrait(req, byteMatches)
		}
	}
	if len(timingMatches) > 0 {
		e.similar(req, KindSimilarTimestamp, timingMatches)
		if e.hooks.OnSimilarTimestamp != nil {
			e.hooks.OnSimilarTimestamp(req, timingMatches)
		}
	}
}

func (e *Engine) similar(req *Request, kind Kind, matches []string) {
	e.countSignal(kind)
	metrics.RecordSignal(string(kind), "")
	logging.Debug().
		Str("client", req.ClientID).
		Strs("matches", matches).
		Str("kind", string(kind)).
		Msg("similar clients")
}
