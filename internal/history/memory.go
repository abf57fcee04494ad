// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package history

import (
	"context"
	"sync"
)

// MemoryStore keeps histories in process memory for the lifetime of the
// store. It is the default Store.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string][]Record
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string][]Record),
	}
}

// Ensure creates the bucket for clientID if it does not exist.
func (s *MemoryStore) Ensure(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked(clientID)
	return nil
}

func (s *MemoryStore) ensureLocked(clientID string) {
	if _, ok := s.buckets[clientID]; ok {
		return
	}
	s.buckets[clientID] = []Record{}
	s.order = append(s.order, clientID)
}

// Append adds rec to the client's history.
func (s *MemoryStore) Append(_ context.Context, clientID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked(clientID)
	s.buckets[clientID] = append(s.buckets[clientID], rec)
	return nil
}

// Last returns the client's most recent record.
func (s *MemoryStore) Last(_ context.Context, clientID string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.buckets[clientID]
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[len(records)-1], true, nil
}

// History returns a copy of the client's records.
func (s *MemoryStore) History(_ context.Context, clientID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Clone(s.buckets[clientID]), nil
}

// Clients returns a copy of every bucket in creation order.
func (s *MemoryStore) Clients(_ context.Context) ([]Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make([]Bucket, 0, len(s.order))
	for _, id := range s.order {
		buckets = append(buckets, Bucket{ClientID: id, Records: Clone(s.buckets[id])})
	}
	return buckets, nil
}

// LatestBucketHead returns the first record of the newest bucket.
func (s *MemoryStore) LatestBucketHead(_ context.Context) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return Record{}, false, nil
	}
	records := s.buckets[s.order[len(s.order)-1]]
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[0], true, nil
}

// Len returns the number of known clients.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
