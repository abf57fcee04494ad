// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package main

import (
	"fmt"

	"github.com/tomtom215/rangeguard/internal/config"
	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/supervisor/services"
)

// historyStore pairs the configured store with its Badger handle, if any.
type historyStore struct {
	history.Store
	badger *history.BadgerStore
}

// GC returns the store to garbage collect, or nil for the memory backend.
func (s *historyStore) GC() services.GCRunner {
	if s.badger == nil {
		return nil
	}
	return s.badger
}

// Close releases the Badger database.
func (s *historyStore) Close() error {
	if s.badger == nil {
		return nil
	}
	return s.badger.Close()
}

func openStore(cfg config.StorageConfig) (*historyStore, error) {
	switch cfg.Backend {
	case config.StorageBadger:
		bs, err := history.OpenBadgerStore(cfg.Path, cfg.SyncWrites)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.Path == "").Msg("Badger history store opened")
		return &historyStore{Store: bs, badger: bs}, nil
	case config.StorageMemory, "":
		logging.Info().Msg("Using in-memory history store")
		return &historyStore{Store: history.NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
