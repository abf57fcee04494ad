// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package config loads RangeGuard configuration with koanf.

Sources are layered, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, then config.yaml, config.yml,
    /etc/rangeguard/config.yaml, /etc/rangeguard/config.yml
 3. Environment variables with an explicit name mapping

# Sections

  - server: listen address, timeouts, the directory served under /files
  - logging: zerolog level and format
  - guard: classification thresholds and trait names
  - storage: history backend (memory or badger) and Badger GC
  - notifiers: log, webhook, Discord, NATS and WebSocket signal delivery
  - api: CORS and rate limiting for the inspection API

# Environment Variables

Guard:
  - RANGEGUARD_ENABLED
  - RANGEGUARD_MAX_RESOURCE_SIZE: resource size in bytes (0 disables size and completion checks)
  - RANGEGUARD_MAX_DELAY_MS: deadline threshold in milliseconds (0 disables)
  - RANGEGUARD_MAX_PARTS: ranges per request (0 disables)
  - RANGEGUARD_BANNED_TRAITS, RANGEGUARD_ALLOWED_TRAITS: comma-separated trait names
  - RANGEGUARD_ACCEPT_ZERO_OFFSETS
  - RANGEGUARD_CLIENT_HEADER: identify clients by this header instead of the real IP
  - RANGEGUARD_RECENT_SIGNALS: size of the in-memory signal buffer

Storage:
  - STORAGE_BACKEND (memory, badger), STORAGE_PATH, STORAGE_SYNC_WRITES
  - STORAGE_GC_INTERVAL, STORAGE_GC_DISCARD_RATIO

Notifiers:
  - LOG_NOTIFIER_ENABLED
  - WEBHOOK_ENABLED, WEBHOOK_URL, WEBHOOK_HEADERS ("Authorization=Bearer x,X-Env=prod"),
    WEBHOOK_RATE_LIMIT_MS, WEBHOOK_TIMEOUT, WEBHOOK_KINDS
  - DISCORD_ENABLED, DISCORD_WEBHOOK_URL, DISCORD_RATE_LIMIT_MS, DISCORD_MIN_SEVERITY (info, warning, critical)
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT_PREFIX, NATS_MAX_RECONNECTS, NATS_RECONNECT_WAIT
  - SIGNAL_STREAM_ENABLED: WebSocket stream at /api/v1/signals/stream

Server, API and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT,
    HTTP_SHUTDOWN_TIMEOUT, FILES_DIR, ENVIRONMENT
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	engineCfg, err := cfg.Guard.EngineConfig()
*/
package config
