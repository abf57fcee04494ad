// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/detection/traits"
	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/websocket"
)

var testContent = bytes.Repeat([]byte("0123456789"), 10)

type testEnv struct {
	handler    http.Handler
	engine     *detection.Engine
	dispatcher *detection.Dispatcher
}

func newTestEnv(t *testing.T, store history.Store, banned ...string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "video.bin"), testContent, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	bannedTraits, err := traits.Resolve(banned)
	if err != nil {
		t.Fatalf("resolve traits: %v", err)
	}
	if store == nil {
		store = history.NewMemoryStore()
	}

	dispatcher := detection.NewDispatcher(10)
	engine := detection.NewEngine(store, detection.Config{
		MaxResourceSize: int64(len(testContent)),
		BannedTraits:    bannedTraits,
	}, dispatcher.Hooks())

	router := NewRouter(NewHandler(engine, dispatcher, dir), RouterConfig{})
	return &testEnv{handler: router.Setup(), engine: engine, dispatcher: dispatcher}
}

func (env *testEnv) do(t *testing.T, method, target, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("X-Real-IP", "192.0.2.10")
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return raw.APIResponse
}

func TestServeFile_PartialContent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/files/video.bin", "bytes=10-19")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Body.String(); got != "0123456789" {
		t.Errorf("body = %q", got)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 10-19/100" {
		t.Errorf("Content-Range = %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestServeFile_WholeFileWithoutRange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/files/video.bin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.Len() != len(testContent) {
		t.Errorf("body length = %d", w.Body.Len())
	}
	if stats := env.engine.Stats(); stats.Bypassed != 1 {
		t.Errorf("bypassed = %d, want 1", stats.Bypassed)
	}
}

func TestServeFile_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	for _, target := range []string{"/files/missing.bin", "/files/sub", "/files/"} {
		if w := env.do(t, http.MethodGet, target, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, w.Code)
		}
	}
}

func TestServeFile_BannedTraitRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, traits.SameStart)

	if w := env.do(t, http.MethodGet, "/files/video.bin", "bytes=0-9"); w.Code != http.StatusPartialContent {
		t.Fatalf("first request status = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/files/video.bin", "bytes=0-19")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), "banned_trait") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListClients(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/files/video.bin", "bytes=1-10")
	env.do(t, http.MethodGet, "/files/video.bin", "bytes=11-20")

	w := env.do(t, http.MethodGet, "/api/v1/clients", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var clients []ClientSummary
	resp := decodeEnvelope(t, w, &clients)
	if !resp.Success {
		t.Fatal("expected success")
	}
	if len(clients) != 1 {
		t.Fatalf("clients = %d, want 1", len(clients))
	}
	c := clients[0]
	if c.ClientID != "192.0.2.10" || c.Requests != 2 {
		t.Errorf("summary = %+v", c)
	}
	if c.ByteSignature != "1,10;11,20;" {
		t.Errorf("byte signature = %q", c.ByteSignature)
	}
	if resp.Meta == nil || resp.Meta.Count == nil || *resp.Meta.Count != 1 {
		t.Errorf("meta = %+v", resp.Meta)
	}
}

func TestClientHistory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/files/video.bin", "bytes=1-10")

	w := env.do(t, http.MethodGet, "/api/v1/clients/192.0.2.10/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got summaryWithRecords
	decodeEnvelope(t, w, &got)
	if len(got.Records) != 1 || got.Records[0].From.String() != "1" {
		t.Errorf("records = %+v", got.Records)
	}

	w = env.do(t, http.MethodGet, "/api/v1/clients/198.51.100.1/history", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown client status = %d, want 404", w.Code)
	}
}

func TestListSignals(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/files/video.bin", "")
	env.do(t, http.MethodGet, "/files/video.bin", "")
	env.do(t, http.MethodGet, "/files/video.bin", "bytes=1-10")

	w := env.do(t, http.MethodGet, "/api/v1/signals?kind=robotic&limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var signals []detection.Signal
	decodeEnvelope(t, w, &signals)
	if len(signals) != 1 {
		t.Fatalf("signals = %d, want 1", len(signals))
	}
	if signals[0].Kind != detection.KindRobotic || signals[0].Reason != string(detection.ReasonAbsent) {
		t.Errorf("newest signal = %+v", signals[0])
	}
}

func TestListSignals_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	tests := []struct {
		query string
		code  string
	}{
		{"limit=abc", ErrCodeBadRequest},
		{"limit=0", ErrCodeValidationFailed},
		{"limit=5000", ErrCodeValidationFailed},
		{"kind=bogus", ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, "/api/v1/signals?"+tt.query, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.query, w.Code)
			continue
		}
		resp := decodeEnvelope(t, w, nil)
		if resp.Error == nil || resp.Error.Code != tt.code {
			t.Errorf("%s: error = %+v, want code %s", tt.query, resp.Error, tt.code)
		}
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/files/video.bin", "bytes=1-10")

	w := env.do(t, http.MethodGet, "/api/v1/stats", "")
	var stats StatsResponse
	decodeEnvelope(t, w, &stats)
	if !stats.Enabled || stats.TrackedClients != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Engine.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", stats.Engine.Accepted)
	}
}

type failingStore struct {
	*history.MemoryStore
}

func (failingStore) LatestBucketHead(context.Context) (history.Record, bool, error) {
	return history.Record{}, false, errors.New("disk gone")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	if w := env.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	env = newTestEnv(t, failingStore{history.NewMemoryStore()})
	w := env.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var health HealthResponse
	decodeEnvelope(t, w, &health)
	if health.StoreHealthy || health.Status != "degraded" {
		t.Errorf("health = %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/files/video.bin", "bytes=1-10")
	w := env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "rangeguard_") {
		t.Error("expected rangeguard metrics in exposition")
	}
}

func TestRouter_ClientHeader(t *testing.T) {
	t.Parallel()

	dispatcher := detection.NewDispatcher(10)
	engine := detection.NewEngine(history.NewMemoryStore(), detection.Config{}, dispatcher.Hooks())
	router := NewRouter(NewHandler(engine, dispatcher, t.TempDir()), RouterConfig{ClientHeader: "X-Session"})
	h := router.Setup()

	req := httptest.NewRequest(http.MethodGet, "/files/none.bin", nil)
	req.Header.Set("X-Session", "session-42")
	req.Header.Set("Range", "bytes=1-2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	records, err := engine.Store().History(context.Background(), "session-42")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("records for header client = %d, want 1", len(records))
	}
}

func TestSignalStream(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	dispatcher := detection.NewDispatcher(10)
	dispatcher.RegisterNotifier(hub)
	engine := detection.NewEngine(history.NewMemoryStore(), detection.Config{}, dispatcher.Hooks())
	router := NewRouter(NewHandler(engine, dispatcher, t.TempDir()), RouterConfig{SignalHub: hub})

	srv := httptest.NewServer(router.Setup())
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/signals/stream?kind=robotic"

	if _, resp, err := gorillaws.DefaultDialer.Dial(wsURL+"&kind=bogus", nil); err == nil {
		t.Fatal("expected bad kind to be refused")
	} else if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad kind response = %v", resp)
	}

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := gorillaws.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatal("expected foreign origin to be refused")
	}

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("stream client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/files/none.bin", nil)
	req.Header.Set("X-Real-IP", "192.0.2.44")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string           `json:"type"`
		Data detection.Signal `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Data.Kind != detection.KindRobotic || msg.Data.ClientID != "192.0.2.44" {
		t.Errorf("signal = %+v", msg.Data)
	}
}
