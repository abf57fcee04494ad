// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package api

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/websocket"
)

// signalStream upgrades GET /api/v1/signals/stream connections onto hub.
type signalStream struct {
	hub     *websocket.Hub
	origins []string
}

func (s *signalStream) upgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      s.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin admits non-browser clients (no Origin header) and browsers
// whose origin is in the CORS list.
func (s *signalStream) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("signal stream rejected from unauthorized origin")
	return false
}

// ServeHTTP validates the kind filter and upgrades the connection.
func (s *signalStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var kinds []detection.Kind
	for _, raw := range r.URL.Query()["kind"] {
		if !validKind(raw) {
			NewResponseWriter(w, r).BadRequest("unknown signal kind " + raw)
			return
		}
		kinds = append(kinds, detection.Kind(raw))
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("signal stream upgrade failed")
		return
	}

	client := websocket.NewClient(s.hub, conn, kinds...)
	s.hub.Register <- client
	client.Start()
}

func validKind(raw string) bool {
	for _, k := range detection.Kinds {
		if string(k) == raw {
			return true
		}
	}
	return false
}
