// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/tomtom215/rangeguard/internal/history"
)

// recorder captures every hook invocation.
type recorder struct {
	mu                sync.Mutex
	events            []string
	robotic           []Reason
	overflows         []OverflowKind
	deadlines         []string
	similarTraits     map[string][][]string
	similarTimestamps map[string][][]string
	downloaded        []string
	rejections        []*Rejection
}

func newRecorder() *recorder {
	return &recorder{
		similarTraits:     make(map[string][][]string),
		similarTimestamps: make(map[string][][]string),
	}
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnRobotic: func(_ *Request, reason Reason) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.robotic = append(r.robotic, reason)
			r.events = append(r.events, "robotic:"+string(reason))
		},
		OnRangeOverflow: func(_ *Request, kind OverflowKind) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.overflows = append(r.overflows, kind)
			r.events = append(r.events, "overflow:"+string(kind))
		},
		OnDeadlineReached: func(req *Request, _ http.ResponseWriter, _ Continuation) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.deadlines = append(r.deadlines, req.ClientID)
		},
		OnSimilarTrait: func(req *Request, matches []string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.similarTraits[req.ClientID] = append(r.similarTraits[req.ClientID], matches)
		},
		OnSimilarTimestamp: func(req *Request, matches []string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.similarTimestamps[req.ClientID] = append(r.similarTimestamps[req.ClientID], matches)
		},
		OnDownloaded: func(req *Request, _ http.ResponseWriter, _ Continuation) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.downloaded = append(r.downloaded, req.ClientID)
		},
		OnRejected: func(_ *Request, rejection *Rejection) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.rejections = append(r.rejections, rejection)
		},
	}
}

// sequence returns a Timestamp func yielding ts in order, then repeating
// the last value.
func sequence(ts ...int64) func() int64 {
	var mu sync.Mutex
	i := 0
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		v := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return v
	}
}

func rangeRequest(client, header string) *Request {
	return &Request{ClientID: client, Range: header, HasRange: true}
}

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func (s *failingStore) Ensure(context.Context, string) error { return s.err }
func (s *failingStore) Append(context.Context, string, history.Record) error {
	return s.err
}
func (s *failingStore) Last(context.Context, string) (history.Record, bool, error) {
	return history.Record{}, false, s.err
}
func (s *failingStore) History(context.Context, string) ([]history.Record, error) {
	return nil, s.err
}
func (s *failingStore) Clients(context.Context) ([]history.Bucket, error) { return nil, s.err }
func (s *failingStore) LatestBucketHead(context.Context) (history.Record, bool, error) {
	return history.Record{}, false, s.err
}

var errStoreDown = errors.New("store unavailable")

// mockNotifier collects delivered signals.
type mockNotifier struct {
	mu      sync.Mutex
	name    string
	enabled bool
	err     error
	signals []*Signal
}

func (m *mockNotifier) Name() string  { return m.name }
func (m *mockNotifier) Enabled() bool { return m.enabled }
func (m *mockNotifier) Send(_ context.Context, s *Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, s)
	return m.err
}

func (m *mockNotifier) received() []*Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Signal(nil), m.signals...)
}
