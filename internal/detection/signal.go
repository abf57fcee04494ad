// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Kind identifies the classification signal that produced a Signal.
type Kind string

const (
	KindRobotic          Kind = "robotic"
	KindRangeOverflow    Kind = "range_overflow"
	KindDeadlineReached  Kind = "deadline_reached"
	KindSimilarTrait     Kind = "similar_trait"
	KindSimilarTimestamp Kind = "similar_timestamp"
	KindDownloaded       Kind = "downloaded"
	KindRejected         Kind = "rejected"
)

// Kinds lists every signal kind in pipeline order.
var Kinds = []Kind{
	KindRobotic,
	KindRangeOverflow,
	KindDeadlineReached,
	KindRejected,
	KindSimilarTrait,
	KindSimilarTimestamp,
	KindDownloaded,
}

// Severity indicates how much attention a signal deserves.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Signal is a classification event published to notifiers and kept in the
// recent signal buffer.
type Signal struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Severity  Severity        `json:"severity"`
	ClientID  string          `json:"client_id"`
	Reason    string          `json:"reason,omitempty"`
	Range     string          `json:"range,omitempty"`
	Matches   []string        `json:"matches,omitempty"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// severityFor maps a signal to its default severity.
func severityFor(kind Kind, reason string) Severity {
	switch kind {
	case KindRejected, KindSimilarTrait:
		return SeverityCritical
	case KindRangeOverflow, KindSimilarTimestamp, KindDeadlineReached:
		return SeverityWarning
	case KindRobotic:
		if reason == string(ReasonAbsent) {
			return SeverityInfo
		}
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Notifier delivers signals to an external channel.
type Notifier interface {
	// Name identifies the notifier in logs and metrics.
	Name() string

	// Enabled reports whether the notifier should receive signals.
	Enabled() bool

	// Send delivers one signal.
	Send(ctx context.Context, signal *Signal) error
}
