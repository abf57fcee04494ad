// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/rangeguard/internal/history"
)

// Reason identifies which robotic heuristic fired.
type Reason string

const (
	// ReasonAbsent means the request carried no Range header at all.
	ReasonAbsent Reason = "absent"
	// ReasonEmpty means the Range header was present but empty.
	ReasonEmpty Reason = "empty"
	// ReasonMalformed means the header did not match the range grammar.
	ReasonMalformed Reason = "malformed"
	// ReasonDigits means a pair had its start after its end.
	ReasonDigits Reason = "digits"
	// ReasonNegative means a pair had a missing bound.
	ReasonNegative Reason = "negative"
)

// OverflowKind identifies which range threshold was exceeded.
type OverflowKind string

const (
	// OverflowParts means the request listed more sub-ranges than allowed.
	OverflowParts OverflowKind = "parts"
	// OverflowSize means a sub-range ended past the resource size.
	OverflowSize OverflowKind = "overflow"
)

// TraitFunc is a behavioral rule over two consecutive records of one client.
// It must be pure.
type TraitFunc func(prev, cur history.Record) bool

// Continuation resumes normal request processing.
type Continuation func()

// Request is the classifier's view of one incoming range request.
type Request struct {
	// ClientID buckets the history, typically the client address.
	ClientID string

	// Range is the raw Range header value and HasRange reports whether
	// the header was sent at all.
	Range    string
	HasRange bool

	// Chunks is filled by a successful pass with the client's full history
	// in arrival order.
	Chunks []history.Record

	// HTTP is the originating request when classification happens inside
	// an HTTP handler.
	HTTP *http.Request
}

// Hooks receive classification signals. Every field is optional; a nil hook
// is skipped. Hooks run while the engine holds its lock, so they must not
// call back into the same Engine.
type Hooks struct {
	OnRobotic          func(req *Request, reason Reason)
	OnRangeOverflow    func(req *Request, kind OverflowKind)
	OnDeadlineReached  func(req *Request, w http.ResponseWriter, next Continuation)
	OnSimilarTrait     func(req *Request, matches []string)
	OnSimilarTimestamp func(req *Request, matches []string)
	OnDownloaded       func(req *Request, w http.ResponseWriter, next Continuation)

	// OnRejected observes trait violations. The violation is also returned
	// from Classify.
	OnRejected func(req *Request, rejection *Rejection)
}

// Validation failures.
var (
	ErrBannedTrait  = errors.New("banned trait matched")
	ErrAllowedTrait = errors.New("allowed trait violated")
)

// RejectionKind distinguishes the two trait lists.
type RejectionKind string

const (
	RejectionBanned  RejectionKind = "banned"
	RejectionAllowed RejectionKind = "allowed"
)

// Rejection describes a trait violation. The Current record was not stored.
type Rejection struct {
	Kind RejectionKind `json:"kind"`

	// Trait is the index of the violated predicate in its list.
	Trait int `json:"trait"`

	Previous history.Record `json:"previous"`
	Current  history.Record `json:"current"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s trait %d: %s", r.Kind, r.Trait, r.Unwrap())
}

// Unwrap returns ErrBannedTrait or ErrAllowedTrait.
func (r *Rejection) Unwrap() error {
	if r.Kind == RejectionBanned {
		return ErrBannedTrait
	}
	return ErrAllowedTrait
}

// Outcome is the result of one classification pass.
type Outcome string

const (
	// OutcomeAccepted means every record of the request was stored.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means a trait violation stopped the pass.
	OutcomeRejected Outcome = "rejected"
	// OutcomeBypassed means the request was not classified (no Range
	// header, or the engine is disabled) and the continuation was invoked.
	OutcomeBypassed Outcome = "bypassed"
)

// Verdict is returned by Engine.Classify.
type Verdict struct {
	Outcome   Outcome
	Rejection *Rejection
}

// Accepted reports whether the pass completed.
func (v Verdict) Accepted() bool { return v.Outcome == OutcomeAccepted }

// Rejected reports whether a trait violation stopped the pass.
func (v Verdict) Rejected() bool { return v.Outcome == OutcomeRejected }

// Err returns the rejection as an error, or nil.
func (v Verdict) Err() error {
	if v.Rejection == nil {
		return nil
	}
	return v.Rejection
}
