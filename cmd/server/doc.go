// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

// Package main is the entry point for the RangeGuard server.
//
// RangeGuard serves files from a directory and classifies every byte-range
// download request per client before it is answered. Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. History store (memory or Badger)
//  4. Signal dispatcher and notifiers (log, webhook, Discord, NATS, WebSocket)
//  5. Classification engine
//  6. HTTP router
//  7. Supervisor tree, until SIGINT or SIGTERM
//
// # Build Tags
//
//	go build ./cmd/server               # NATS notifier stubbed out
//	go build -tags nats ./cmd/server    # NATS notifier via Watermill
//
// # Example
//
//	export FILES_DIR=/srv/media
//	export STORAGE_BACKEND=badger STORAGE_PATH=/var/lib/rangeguard
//	export RANGEGUARD_BANNED_TRAITS=same_start,repeat
//	export WEBHOOK_ENABLED=true WEBHOOK_URL=https://hooks.example.com/rangeguard
//	./rangeguard
package main
