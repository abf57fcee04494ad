// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package websocket streams classification signals to connected WebSocket
clients.

The Hub is a detection.Notifier: registered with the dispatcher, every
signal is broadcast as

	{"type": "signal", "data": {...detection.Signal...}}

Clients may restrict the stream to some signal kinds when they connect
(GET /api/v1/signals/stream?kind=rejected&kind=similar_trait). A client
sending {"type":"ping"} receives {"type":"pong"}.

The hub loop runs under the supervisor (RunWithContext). Broadcasts never
block: a client whose send buffer is full is disconnected, and a full hub
queue drops the message with a warning.
*/
package websocket
