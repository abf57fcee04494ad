// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package services

import (
	"context"
	"io"

	"github.com/tomtom215/rangeguard/internal/logging"
)

// Drainer is satisfied by *detection.Dispatcher.
type Drainer interface {
	Drain()
}

// DispatcherService keeps the signal dispatcher's resources for the life of
// the tree and releases them on shutdown.
type DispatcherService struct {
	dispatcher Drainer
	closers    []io.Closer
	name       string
}

// NewDispatcherService creates the service. On shutdown the dispatcher
// stops fanning out new signals, and closers are closed after in-flight
// notifications finish.
func NewDispatcherService(dispatcher Drainer, closers ...io.Closer) *DispatcherService {
	return &DispatcherService{
		dispatcher: dispatcher,
		closers:    closers,
		name:       "signal-dispatcher",
	}
}

// Serve implements suture.Service.
func (s *DispatcherService) Serve(ctx context.Context) error {
	<-ctx.Done()

	s.dispatcher.Drain()
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close notifier")
		}
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *DispatcherService) String() string {
	return s.name
}
