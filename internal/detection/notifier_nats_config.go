// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import "time"

// DefaultNATSSubjectPrefix is prepended to the signal kind.
const DefaultNATSSubjectPrefix = "rangeguard.signals"

// NATSConfig configures the NATS notifier.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSSubject returns the subject a signal of kind is published on.
func NATSSubject(prefix string, kind Kind) string {
	if prefix == "" {
		prefix = DefaultNATSSubjectPrefix
	}
	return prefix + "." + string(kind)
}
