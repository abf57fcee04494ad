// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package services

import "context"

// ContextRunner is satisfied by *websocket.Hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the signal stream hub.
type WebSocketHubService struct {
	hub  ContextRunner
	name string
}

// NewWebSocketHubService wraps hub.
func NewWebSocketHubService(hub ContextRunner) *WebSocketHubService {
	return &WebSocketHubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service.
func (s *WebSocketHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer.
func (s *WebSocketHubService) String() string {
	return s.name
}
