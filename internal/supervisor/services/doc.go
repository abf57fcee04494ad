// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package services provides suture.Service wrappers for RangeGuard components.

Each wrapper translates a component's lifecycle into suture's
Serve(ctx) error and implements fmt.Stringer so supervisor events name it.

HTTPServerService wraps *http.Server: ListenAndServe in a goroutine,
Shutdown with a timeout once ctx is canceled.

BadgerGCService runs value log GC on the Badger history store every
interval.

WebSocketHubService runs the live signal stream hub.

DispatcherService owns the signal dispatcher's shutdown: on cancellation it
waits for in-flight notifications and closes notifiers that hold
connections (NATS).
*/
package services
