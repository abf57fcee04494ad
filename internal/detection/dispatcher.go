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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
)

const (
	defaultRecentSignals = 500
	notifyTimeout        = 15 * time.Second
)

// Dispatcher turns engine hooks into Signals, keeps the most recent ones in
// memory and fans them out to notifiers.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	draining  bool

	recentMu sync.RWMutex
	recent   []*Signal
	head     int
	count    int

	wg  sync.WaitGroup
	now func() time.Time
}

// NewDispatcher creates a dispatcher remembering up to bufferSize signals.
func NewDispatcher(bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultRecentSignals
	}
	return &Dispatcher{
		recent: make([]*Signal, bufferSize),
		now:    time.Now,
	}
}

// RegisterNotifier adds a notifier.
func (d *Dispatcher) RegisterNotifier(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.notifiers = append(d.notifiers, n)
	logging.Info().Str("notifier", n.Name()).Msg("registered notifier")
}

// Hooks returns engine hooks that publish every callback as a Signal.
// The deadline and completion hooks do not invoke the continuation.
func (d *Dispatcher) Hooks() Hooks {
	return Hooks{
		OnRobotic: func(req *Request, reason Reason) {
			d.publish(req, KindRobotic, string(reason), nil, nil,
				fmt.Sprintf("robotic request: %s", reason))
		},
		OnRangeOverflow: func(req *Request, kind OverflowKind) {
			d.publish(req, KindRangeOverflow, string(kind), nil, nil,
				fmt.Sprintf("range overflow: %s", kind))
		},
		OnDeadlineReached: func(req *Request, _ http.ResponseWriter, _ Continuation) {
			d.publish(req, KindDeadlineReached, "", nil, nil, "deadline reached")
		},
		OnSimilarTrait: func(req *Request, matches []string) {
			d.publish(req, KindSimilarTrait, "", matches, nil,
				fmt.Sprintf("byte signature shared with %d client(s)", len(matches)))
		},
		OnSimilarTimestamp: func(req *Request, matches []string) {
			d.publish(req, KindSimilarTimestamp, "", matches, nil,
				fmt.Sprintf("timing signature shared with %d client(s)", len(matches)))
		},
		OnDownloaded: func(req *Request, _ http.ResponseWriter, _ Continuation) {
			d.publish(req, KindDownloaded, "", nil, nil, "resource fully downloaded")
		},
		OnRejected: func(req *Request, rejection *Rejection) {
			d.publish(req, KindRejected, string(rejection.Kind), nil, rejection, rejection.Error())
		},
	}
}

// Wrap returns hooks that call h first and then publish the signal.
func (d *Dispatcher) Wrap(h Hooks) Hooks {
	return Chain(h, d.Hooks())
}

func (d *Dispatcher) publish(req *Request, kind Kind, reason string, matches []string, meta any, message string) {
	signal := &Signal{
		ID:        uuid.NewString(),
		Kind:      kind,
		Severity:  severityFor(kind, reason),
		ClientID:  req.ClientID,
		Reason:    reason,
		Range:     req.Range,
		Matches:   append([]string(nil), matches...),
		Message:   message,
		CreatedAt: d.now().UTC(),
	}
	if meta != nil {
		data, err := json.Marshal(meta)
		if err == nil {
			signal.Metadata = data
		}
	}

	ctx := context.Background()
	if req.HTTP != nil {
		ctx = context.WithoutCancel(req.HTTP.Context())
	}
	d.Publish(ctx, signal)
}

// Publish records signal and sends it to every enabled notifier
// asynchronously. After Drain the signal is only recorded.
func (d *Dispatcher) Publish(ctx context.Context, signal *Signal) {
	d.remember(signal)

	// wg.Add happens under the read lock so it can never race Drain's Wait.
	d.mu.RLock()
	if d.draining {
		d.mu.RUnlock()
		logging.Debug().Str("signal", signal.ID).Msg("dispatcher draining, signal not delivered")
		return
	}
	notifiers := make([]Notifier, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		if n.Enabled() {
			notifiers = append(notifiers, n)
		}
	}
	d.wg.Add(len(notifiers))
	d.mu.RUnlock()

	for _, notifier := range notifiers {
		go func(n Notifier) {
			defer d.wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
			defer cancel()

			start := time.Now()
			err := n.Send(sendCtx, signal)
			metrics.RecordNotification(n.Name(), time.Since(start), err)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).
					Str("notifier", n.Name()).
					Str("signal", signal.ID).
					Msg("failed to send signal")
			}
		}(notifier)
	}
}

func (d *Dispatcher) remember(signal *Signal) {
	d.recentMu.Lock()
	defer d.recentMu.Unlock()

	d.recent[d.head] = signal
	d.head = (d.head + 1) % len(d.recent)
	if d.count < len(d.recent) {
		d.count++
	}
}

// Recent returns up to limit signals, newest first. A limit of zero or
// less returns everything retained.
func (d *Dispatcher) Recent(limit int) []*Signal {
	d.recentMu.RLock()
	defer d.recentMu.RUnlock()

	if limit <= 0 || limit > d.count {
		limit = d.count
	}
	out := make([]*Signal, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (d.head - i + len(d.recent)) % len(d.recent)
		out = append(out, d.recent[idx])
	}
	return out
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Drain stops fan-out to notifiers and waits for in-flight notifications.
// Signals published afterwards are still kept for Recent. Once Drain
// returns, notifiers may be closed.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	d.wg.Wait()
}

// Chain combines hook sets. For each callback the sets are called in order,
// skipping nil entries.
func Chain(sets ...Hooks) Hooks {
	var out Hooks
	for _, h := range sets {
		if h.OnRobotic != nil {
			prev := out.OnRobotic
			out.OnRobotic = func(req *Request, reason Reason) {
				if prev != nil {
					prev(req, reason)
				}
				h.OnRobotic(req, reason)
			}
		}
		if h.OnRangeOverflow != nil {
			prev := out.OnRangeOverflow
			out.OnRangeOverflow = func(req *Request, kind OverflowKind) {
				if prev != nil {
					prev(req, kind)
				}
				h.OnRangeOverflow(req, kind)
			}
		}
		if h.OnDeadlineReached != nil {
			prev := out.OnDeadlineReached
			out.OnDeadlineReached = func(req *Request, w http.ResponseWriter, next Continuation) {
				if prev != nil {
					prev(req, w, next)
				}
				h.OnDeadlineReached(req, w, next)
			}
		}
		if h.OnSimilarTrait != nil {
			prev := out.OnSimilarTrait
			out.OnSimilarTrait = func(req *Request, matches []string) {
				if prev != nil {
					prev(req, matches)
				}
				h.OnSimilarTrait(req, matches)
			}
		}
		if h.OnSimilarTimestamp != nil {
			prev := out.OnSimilarTimestamp
			out.OnSimilarTimestamp = func(req *Request, matches []string) {
				if prev != nil {
					prev(req, matches)
				}
				h.OnSimilarTimestamp(req, matches)
			}
		}
		if h.OnDownloaded != nil {
			prev := out.OnDownloaded
			out.OnDownloaded = func(req *Request, w http.ResponseWriter, next Continuation) {
				if prev != nil {
					prev(req, w, next)
				}
				h.OnDownloaded(req, w, next)
			}
		}
		if h.OnRejected != nil {
			prev := out.OnRejected
			out.OnRejected = func(req *Request, rejection *Rejection) {
				if prev != nil {
					prev(req, rejection)
				}
				h.OnRejected(req, rejection)
			}
		}
	}
	return out
}
