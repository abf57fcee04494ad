// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package main

import (
	"io"

	"github.com/tomtom215/rangeguard/internal/config"
	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/websocket"
)

// registerNotifiers adds the enabled notifiers to d. It returns the signal
// stream hub (nil when disabled) and the notifiers that hold connections and
// must be closed on shutdown. A NATS notifier that cannot be created is
// logged and skipped.
func registerNotifiers(d *detection.Dispatcher, cfg config.NotifiersConfig) (*websocket.Hub, []io.Closer) {
	var closers []io.Closer
	var hub *websocket.Hub

	if cfg.Log.Enabled {
		d.RegisterNotifier(detection.NewLogNotifier())
	}

	if cfg.Webhook.Enabled {
		d.RegisterNotifier(detection.NewWebhookNotifier(cfg.Webhook.DetectionConfig()))
	}

	if cfg.Discord.Enabled {
		d.RegisterNotifier(detection.NewDiscordNotifier(cfg.Discord.DetectionConfig()))
	}

	if cfg.NATS.Enabled {
		n, err := detection.NewNATSNotifier(cfg.NATS.DetectionConfig())
		if err != nil {
			logging.Warn().Err(err).Msg("NATS notifier unavailable")
		} else {
			d.RegisterNotifier(n)
			closers = append(closers, n)
		}
	}

	if cfg.Stream.Enabled {
		hub = websocket.NewHub()
		d.RegisterNotifier(hub)
	}

	return hub, closers
}
