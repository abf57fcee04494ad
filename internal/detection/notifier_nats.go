// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

//go:build nats

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rangeguard/internal/logging"
)

// NATSNotifier publishes signals to NATS subjects named
// "<SubjectPrefix>.<kind>" through a Watermill publisher.
type NATSNotifier struct {
	publisher message.Publisher
	prefix    string
	cb        *gobreaker.CircuitBreaker[struct{}]

	mu      sync.RWMutex
	enabled bool
	closed  bool
}

// NewNATSNotifier connects to cfg.URL and returns an enabled notifier.
func NewNATSNotifier(cfg NATSConfig) (*NATSNotifier, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	logger := watermill.NewStdLogger(false, false)
	natsOpts := []natsgo.Option{
		natsgo.Name("rangeguard"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &NATSNotifier{
		publisher: pub,
		prefix:    cfg.SubjectPrefix,
		enabled:   true,
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "nats-notifier",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}, nil
}

// Name returns the notifier name.
func (n *NATSNotifier) Name() string { return "nats" }

// Enabled returns whether this notifier is enabled.
func (n *NATSNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && !n.closed
}

// SetEnabled enables or disables the notifier.
func (n *NATSNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send publishes the signal. The signal ID doubles as the message UUID.
func (n *NATSNotifier) Send(ctx context.Context, signal *Signal) error {
	if !n.Enabled() {
		return nil
	}

	data, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	msg := message.NewMessage(signal.ID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", string(signal.Kind))
	msg.Metadata.Set("severity", string(signal.Severity))
	msg.Metadata.Set("client_id", signal.ClientID)

	_, err = n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.publisher.Publish(NATSSubject(n.prefix, signal.Kind), msg)
	})
	return err
}

// Close shuts the publisher down.
func (n *NATSNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	return n.publisher.Close()
}
