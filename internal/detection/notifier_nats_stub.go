// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

//go:build !nats

package detection

import (
	"context"
	"fmt"
)

// NATSNotifier is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable it.
type NATSNotifier struct{}

// NewNATSNotifier returns an error when NATS support is not compiled in.
func NewNATSNotifier(cfg NATSConfig) (*NATSNotifier, error) {
	return nil, fmt.Errorf("NATS notifier not available: build with -tags=nats")
}

// Name returns the notifier name.
func (n *NATSNotifier) Name() string { return "nats" }

// Enabled always returns false for the stub.
func (n *NATSNotifier) Enabled() bool { return false }

// SetEnabled is a no-op stub.
func (n *NATSNotifier) SetEnabled(bool) {}

// Send is a stub that returns an error.
func (n *NATSNotifier) Send(context.Context, *Signal) error {
	return fmt.Errorf("NATS notifier not available: build with -tags=nats")
}

// Close is a no-op stub.
func (n *NATSNotifier) Close() error { return nil }
