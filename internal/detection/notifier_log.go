// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rangeguard/internal/logging"
)

// LogNotifier writes each signal as a structured log line.
type LogNotifier struct {
	mu      sync.RWMutex
	enabled bool
}

// NewLogNotifier creates an enabled log notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{enabled: true}
}

// Name returns the notifier name.
func (n *LogNotifier) Name() string { return "log" }

// Enabled returns whether this notifier is enabled.
func (n *LogNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// SetEnabled enables or disables the notifier.
func (n *LogNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send logs the signal at a level matching its severity.
func (n *LogNotifier) Send(ctx context.Context, signal *Signal) error {
	logger := logging.Ctx(ctx)

	var event *zerolog.Event
	switch signal.Severity {
	case SeverityCritical:
		event = logger.Warn()
	case SeverityWarning:
		event = logger.Info()
	default:
		event = logger.Debug()
	}

	event.
		Str("signal_id", signal.ID).
		Str("kind", string(signal.Kind)).
		Str("severity", string(signal.Severity)).
		Str("client", signal.ClientID).
		Str("reason", signal.Reason).
		Str("range", signal.Range).
		Strs("matches", signal.Matches).
		Msg(signal.Message)
	return nil
}
