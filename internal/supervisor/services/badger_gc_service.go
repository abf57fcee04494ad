// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
)

// GCRunner is satisfied by *history.BadgerStore.
type GCRunner interface {
	RunGC(discardRatio float64) error
}

// BadgerGCService periodically runs Badger value log GC.
type BadgerGCService struct {
	store        GCRunner
	interval     time.Duration
	discardRatio float64
	clock        clockwork.Clock
	name         string
}

// NewBadgerGCService creates the service. clock may be nil.
func NewBadgerGCService(store GCRunner, interval time.Duration, discardRatio float64, clock clockwork.Clock) *BadgerGCService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &BadgerGCService{
		store:        store,
		interval:     interval,
		discardRatio: discardRatio,
		clock:        clock,
		name:         "badger-gc",
	}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.runCycle()
		}
	}
}

func (s *BadgerGCService) runCycle() {
	err := s.store.RunGC(s.discardRatio)
	metrics.RecordBadgerGC(err)
	if err != nil {
		logging.Warn().Err(err).Msg("badger value log GC failed")
	}
}

// String implements fmt.Stringer.
func (s *BadgerGCService) String() string {
	return s.name
}
