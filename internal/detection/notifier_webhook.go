// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/metrics"
)

// ErrCircuitOpen is returned while the webhook circuit breaker is open.
var ErrCircuitOpen = errors.New("webhook circuit breaker is open")

// WebhookNotifier posts signals to a generic webhook endpoint.
type WebhookNotifier struct {
	webhookURL string
	headers    map[string]string
	kinds      map[Kind]bool
	client     *http.Client
	enabled    bool
	mu         sync.RWMutex

	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[struct{}]
}

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	WebhookURL  string            `json:"webhook_url"`
	Headers     map[string]string `json:"headers,omitempty"` // e.g. Authorization
	Enabled     bool              `json:"enabled"`
	RateLimitMs int               `json:"rate_limit_ms"`
	Timeout     time.Duration     `json:"timeout"`

	// Kinds restricts delivery to the listed signal kinds. Empty means all.
	Kinds []Kind `json:"kinds,omitempty"`
}

// WebhookPayload is the JSON body sent to the endpoint.
type WebhookPayload struct {
	Signal    *Signal   `json:"signal"`
	EventType string    `json:"event_type"` // range_signal
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // rangeguard
}

// NewWebhookNotifier creates a webhook notifier. Deliveries are spaced by
// RateLimitMs (500ms by default) and guarded by a circuit breaker that opens
// after five consecutive failures.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	interval := time.Duration(config.RateLimitMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	headers := make(map[string]string, len(config.Headers))
	for k, v := range config.Headers {
		headers[k] = v
	}
	var kinds map[Kind]bool
	if len(config.Kinds) > 0 {
		kinds = make(map[Kind]bool, len(config.Kinds))
		for _, k := range config.Kinds {
			kinds[k] = true
		}
	}

	const cbName = "webhook-notifier"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	return &WebhookNotifier{
		webhookURL: config.WebhookURL,
		headers:    headers,
		kinds:      kinds,
		enabled:    config.Enabled,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		client:     &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        cbName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("[CIRCUIT BREAKER] State transition")
				metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
				metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			},
		}),
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Enabled returns whether this notifier is enabled.
func (n *WebhookNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *WebhookNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetWebhookURL updates the webhook URL.
func (n *WebhookNotifier) SetWebhookURL(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.webhookURL = url
}

// Send delivers a signal to the webhook endpoint. Signals of kinds the
// notifier is not subscribed to are dropped silently.
func (n *WebhookNotifier) Send(ctx context.Context, signal *Signal) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	if n.kinds != nil && !n.kinds[signal.Kind] {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	headers := make(map[string]string, len(n.headers))
	for k, v := range n.headers {
		headers[k] = v
	}
	n.mu.RUnlock()

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limit wait: %w", err)
	}

	payload := WebhookPayload{
		Signal:    signal,
		EventType: "range_signal",
		Timestamp: time.Now().UTC(),
		Source:    "rangeguard",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	_, err = n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, webhookURL, headers, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, url string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
