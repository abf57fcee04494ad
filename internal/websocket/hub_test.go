// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/rangeguard/internal/detection"
)

type streamedSignal struct {
	Type string           `json:"type"`
	Data detection.Signal `json:"data"`
}

// startHub runs hub and an upgrade endpoint, returning the ws:// URL.
func startHub(t *testing.T, hub *Hub) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var kinds []detection.Kind
		for _, k := range r.URL.Query()["kind"] {
			kinds = append(kinds, detection.Kind(k))
		}
		client := NewClient(hub, conn, kinds...)
		hub.Register <- client
		client.Start()
	}))

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.GetClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readSignal(t *testing.T, conn *websocket.Conn) streamedSignal {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg streamedSignal
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestHub_NotifierIdentity(t *testing.T) {
	hub := NewHub()
	var _ detection.Notifier = hub
	if hub.Name() != "websocket" {
		t.Errorf("Name() = %q", hub.Name())
	}
	if hub.Enabled() {
		t.Error("hub without clients should report disabled")
	}
}

func TestHub_BroadcastsSignals(t *testing.T) {
	hub := NewHub()
	url := startHub(t, hub)

	all := dial(t, url)
	rejectedOnly := dial(t, url+"?kind=rejected")
	waitForClients(t, hub, 2)

	if !hub.Enabled() {
		t.Fatal("hub with clients should be enabled")
	}

	_ = hub.Send(context.Background(), &detection.Signal{ID: "s1", Kind: detection.KindRobotic, ClientID: "a"})
	_ = hub.Send(context.Background(), &detection.Signal{ID: "s2", Kind: detection.KindRejected, ClientID: "b"})

	if msg := readSignal(t, all); msg.Type != MessageTypeSignal || msg.Data.ID != "s1" {
		t.Errorf("first message = %+v", msg)
	}
	if msg := readSignal(t, all); msg.Data.ID != "s2" {
		t.Errorf("second message = %+v", msg)
	}
	if msg := readSignal(t, rejectedOnly); msg.Data.ID != "s2" || msg.Data.Kind != detection.KindRejected {
		t.Errorf("filtered client got %+v", msg)
	}
}

func TestHub_PingPong(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startHub(t, hub))
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("type = %q, want pong", msg.Type)
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	conn := dial(t, startHub(t, hub))
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	waitForClients(t, hub, 1)

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext returned %v", err)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("clients after shutdown = %d", hub.GetClientCount())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}

func TestHub_SendNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			_ = hub.Send(context.Background(), &detection.Signal{ID: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked with a full queue")
	}
}
