// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
	"github.com/tomtom215/rangeguard/internal/rangeheader"
)

// checkHeader fires empty once per request. It does not stop the pass.
func (e *Engine) checkHeader(req *Request, header string) {
	if header == "" {
		e.robotic(req, ReasonEmpty)
	}
}

// checkPair runs the per pair heuristics in order: malformed, digits and
// negative. Malformed looks at the whole header, so a bad header fires it
// once for every pair processed.
func (e *Engine) checkPair(req *Request, pair rangeheader.Pair) {
	if !rangeheader.Valid(req.Range) {
		e.robotic(req, ReasonMalformed)
	}
	if pair.From.Greater(pair.To) {
		e.robotic(req, ReasonDigits)
	}
	if e.missing(pair.FromText, pair.From) || e.missing(pair.ToText, pair.To) {
		e.robotic(req, ReasonNegative)
	}
}

// missing reports whether a bound counts as absent. Unless
// AcceptZeroOffsets is set, a bound of exactly 0 is also absent.
func (e *Engine) missing(text string, o rangeheader.Offset) bool {
	if text == "" || !o.IsValid() {
		return true
	}
	return !e.cfg.AcceptZeroOffsets && o == 0
}

func (e *Engine) robotic(req *Request, reason Reason) {
	e.countSignal(KindRobotic)
	metrics.RecordSignal(string(KindRobotic), string(reason))
	logging.Debug().
		Str("client", req.ClientID).
		Str("range", req.Range).
		Str("reason", string(reason)).
		Msg("robotic request")

	if e.hooks.OnRobotic != nil {
		e.hooks.OnRobotic(req, reason)
	}
}
