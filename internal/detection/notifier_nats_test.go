// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

//go:build nats

package detection

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

// startNATSServer runs an embedded server on a random port.
func startNATSServer(t *testing.T) string {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		ServerName: "rangeguard-test",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestNATSNotifier_PublishesBySubject(t *testing.T) {
	url := startNATSServer(t)

	nc, err := natsgo.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	msgs := make(chan *natsgo.Msg, 4)
	sub, err := nc.ChanSubscribe("rg.test.>", msgs)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer func() { _ = sub.Unsubscribe() }()
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	n, err := NewNATSNotifier(NATSConfig{URL: url, SubjectPrefix: "rg.test"})
	if err != nil {
		t.Fatalf("NewNATSNotifier: %v", err)
	}
	defer n.Close()

	signal := &Signal{
		ID:        "0b8a2f5e-6f7c-4d1e-9a55-0c2d1c7e9f10",
		Kind:      KindRejected,
		Severity:  SeverityCritical,
		ClientID:  "192.0.2.9",
		Message:   "banned trait matched",
		CreatedAt: time.Now().UTC(),
	}
	if err := n.Send(context.Background(), signal); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Subject != "rg.test.rejected" {
			t.Errorf("subject = %q", msg.Subject)
		}
		var got Signal
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.ID != signal.ID || got.ClientID != signal.ClientID {
			t.Errorf("payload = %+v", got)
		}
		if kind := msg.Header.Get("kind"); kind != string(KindRejected) {
			t.Errorf("kind header = %q", kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNATSNotifier_CloseDisables(t *testing.T) {
	n, err := NewNATSNotifier(NATSConfig{URL: startNATSServer(t)})
	if err != nil {
		t.Fatalf("NewNATSNotifier: %v", err)
	}
	if !n.Enabled() {
		t.Fatal("new notifier should be enabled")
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n.Enabled() {
		t.Error("closed notifier should be disabled")
	}
	if err := n.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
