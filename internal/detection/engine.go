// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
	"github.com/tomtom215/rangeguard/internal/rangeheader"
)

// Config configures the classification engine. Zero numeric thresholds are
// treated as not configured.
type Config struct {
	// MaxResourceSize enables the size overflow and completion checks.
	MaxResourceSize int64

	// MaxDelay enables the deadline check, in milliseconds.
	MaxDelay int64

	// MaxParts enables the parts overflow check.
	MaxParts int

	// BannedTraits reject a record when any of them returns true.
	BannedTraits []TraitFunc

	// AllowedTraits reject a record when any of them returns false.
	AllowedTraits []TraitFunc

	// Timestamp overrides the clock. It returns milliseconds.
	Timestamp func() int64

	// Clock is used when Timestamp is nil. Defaults to the wall clock.
	Clock clockwork.Clock

	// AcceptZeroOffsets stops the negative heuristic from treating a bound
	// of exactly 0 as missing.
	AcceptZeroOffsets bool
}

// EngineMetrics tracks classification counters.
type EngineMetrics struct {
	Requests         int64
	Accepted         int64
	Rejected         int64
	Bypassed         int64
	StoreErrors      int64
	ProcessingTimeMs int64
	LastClassifiedAt time.Time
	Signals          map[Kind]int64
	mu               sync.RWMutex
}

// EngineStats is a point-in-time copy of EngineMetrics.
type EngineStats struct {
	Requests         int64          `json:"requests"`
	Accepted         int64          `json:"accepted"`
	Rejected         int64          `json:"rejected"`
	Bypassed         int64          `json:"bypassed"`
	StoreErrors      int64          `json:"store_errors"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	LastClassifiedAt time.Time      `json:"last_classified_at"`
	Signals          map[Kind]int64 `json:"signals"`
}

// Engine classifies range requests against the histories in its store.
// Each Classify call runs under one lock so that appends, cross-client
// scans and the completion check all observe the same snapshot.
type Engine struct {
	store history.Store
	cfg   Config
	hooks Hooks
	now   func() int64

	mu      sync.Mutex
	enabled bool
	stateMu sync.RWMutex

	metricsStore *EngineMetrics
}

// NewEngine creates an engine over store. The store is required; use
// history.NewMemoryStore for a process-local default.
func NewEngine(store history.Store, cfg Config, hooks Hooks) *Engine {
	if store == nil {
		panic("detection: NewEngine requires a history store")
	}

	now := cfg.Timestamp
	if now == nil {
		clock := cfg.Clock
		if clock == nil {
			clock = clockwork.NewRealClock()
		}
		now = func() int64 { return clock.Now().UnixMilli() }
	}

	return &Engine{
		store:   store,
		cfg:     cfg,
		hooks:   hooks,
		now:     now,
		enabled: true,
		metricsStore: &EngineMetrics{
			Signals: make(map[Kind]int64),
		},
	}
}

// Store returns the engine's history store.
func (e *Engine) Store() history.Store {
	return e.store
}

// SetEnabled enables or disables classification. A disabled engine bypasses
// every request.
func (e *Engine) SetEnabled(enabled bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.enabled = enabled
}

// Enabled returns whether the engine classifies requests.
func (e *Engine) Enabled() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.enabled
}

// Classify runs one classification pass for req.
//
// w and next are handed to the deadline and completion hooks; either may be
// nil. When the request has no Range header, or the engine is disabled,
// next is invoked and the verdict is OutcomeBypassed. A trait violation
// yields OutcomeRejected. The returned error is reserved for history store
// failures.
func (e *Engine) Classify(ctx context.Context, req *Request, w http.ResponseWriter, next Continuation) (Verdict, error) {
	if next == nil {
		next = func() {}
	}
	if !e.Enabled() {
		next()
		e.recordOutcome(OutcomeBypassed, 0)
		return Verdict{Outcome: OutcomeBypassed}, nil
	}

	start := time.Now()

	e.mu.Lock()
	verdict, err := e.classify(ctx, req, w, next)
	e.mu.Unlock()

	elapsed := time.Since(start)
	if err != nil {
		e.metricsStore.mu.Lock()
		e.metricsStore.Requests++
		e.metricsStore.StoreErrors++
		e.metricsStore.mu.Unlock()
		metrics.RecordClassification("error", elapsed)
		return verdict, err
	}

	e.recordOutcome(verdict.Outcome, elapsed)
	return verdict, nil
}

func (e *Engine) classify(ctx context.Context, req *Request, w http.ResponseWriter, next Continuation) (Verdict, error) {
	if !req.HasRange {
		e.robotic(req, ReasonAbsent)
		next()
		return Verdict{Outcome: OutcomeBypassed}, nil
	}

	header := req.Range
	e.checkHeader(req, header)

	pairs := rangeheader.Parse(header)
	e.checkParts(req, len(pairs))

	if err := e.store.Ensure(ctx, req.ClientID); err != nil {
		metrics.RecordStoreError("ensure")
		return Verdict{}, fmt.Errorf("ensure history for %s: %w", req.ClientID, err)
	}

	for _, pair := range pairs {
		rec := history.Record{
			Timestamp: e.now(),
			From:      pair.From,
			To:        pair.To,
		}

		e.checkSize(req, pair)
		e.checkPair(req, pair)
		if err := e.checkDeadline(ctx, req, w, next, rec.Timestamp); err != nil {
			return Verdict{}, err
		}

		rejection, err := e.validateTraits(ctx, req.ClientID, rec)
		if err != nil {
			return Verdict{}, err
		}
		if rejection != nil {
			e.reject(ctx, req, rejection)
			return Verdict{Outcome: OutcomeRejected, Rejection: rejection}, nil
		}

		if err := e.store.Append(ctx, req.ClientID, rec); err != nil {
			metrics.RecordStoreError("append")
			return Verdict{}, fmt.Errorf("append history for %s: %w", req.ClientID, err)
		}
	}

	buckets, err := e.store.Clients(ctx)
	if err != nil {
		metrics.RecordStoreError("clients")
		return Verdict{}, fmt.Errorf("enumerate histories: %w", err)
	}
	metrics.TrackedClients.Set(float64(len(buckets)))

	own := ownHistory(buckets, req.ClientID)
	e.checkSimilarity(req, buckets, own)
	e.checkCompletion(req, w, next, own)

	req.Chunks = history.Clone(own)
	return Verdict{Outcome: OutcomeAccepted}, nil
}

func ownHistory(buckets []history.Bucket, clientID string) []history.Record {
	for _, b := range buckets {
		if b.ClientID == clientID {
			return b.Records
		}
	}
	return nil
}

func (e *Engine) reject(ctx context.Context, req *Request, rejection *Rejection) {
	metrics.RecordRejection(string(rejection.Kind))
	e.countSignal(KindRejected)

	logging.Ctx(ctx).Warn().
		Str("client", req.ClientID).
		Str("range", req.Range).
		Str("kind", string(rejection.Kind)).
		Int("trait", rejection.Trait).
		Msg("trait violation")

	if e.hooks.OnRejected != nil {
		e.hooks.OnRejected(req, rejection)
	}
}

func (e *Engine) countSignal(kind Kind) {
	e.metricsStore.mu.Lock()
	e.metricsStore.Signals[kind]++
	e.metricsStore.mu.Unlock()
}

func (e *Engine) recordOutcome(outcome Outcome, elapsed time.Duration) {
	m := e.metricsStore
	m.mu.Lock()
	m.Requests++
	switch outcome {
	case OutcomeAccepted:
		m.Accepted++
	case OutcomeRejected:
		m.Rejected++
	case OutcomeBypassed:
		m.Bypassed++
	}
	m.ProcessingTimeMs += elapsed.Milliseconds()
	m.LastClassifiedAt = time.Now()
	m.mu.Unlock()

	metrics.RecordClassification(string(outcome), elapsed)
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() EngineStats {
	m := e.metricsStore
	m.mu.RLock()
	defer m.mu.RUnlock()

	signals := make(map[Kind]int64, len(m.Signals))
	for k, v := range m.Signals {
		signals[k] = v
	}
	return EngineStats{
		Requests:         m.Requests,
		Accepted:         m.Accepted,
		Rejected:         m.Rejected,
		Bypassed:         m.Bypassed,
		StoreErrors:      m.StoreErrors,
		ProcessingTimeMs: m.ProcessingTimeMs,
		LastClassifiedAt: m.LastClassifiedAt,
		Signals:          signals,
	}
}
