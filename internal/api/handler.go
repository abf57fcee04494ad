// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package api

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/validation"
)

const (
	defaultSignalsLimit = 50
	maxSignalsLimit     = 1000
)

// Handler serves the guarded files and the inspection endpoints.
type Handler struct {
	engine     *detection.Engine
	store      history.Store
	dispatcher *detection.Dispatcher
	files      http.FileSystem
	startTime  time.Time
}

// NewHandler creates a handler serving files from filesDir.
func NewHandler(engine *detection.Engine, dispatcher *detection.Dispatcher, filesDir string) *Handler {
	return &Handler{
		engine:     engine,
		store:      engine.Store(),
		dispatcher: dispatcher,
		files:      http.Dir(filesDir),
		startTime:  time.Now(),
	}
}

// ServeFile answers GET /files/* with http.ServeContent, which honors the
// Range header the guard has already classified. Directories are not listed.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	if name == "/" {
		http.NotFound(w, r)
		return
	}

	f, err := h.files.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			http.NotFound(w, r)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("file", name).Msg("open file")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// ClientSummary describes one tracked client.
type ClientSummary struct {
	ClientID        string          `json:"client_id"`
	Requests        int             `json:"requests"`
	ByteSignature   string          `json:"byte_signature"`
	TimingSignature string          `json:"timing_signature"`
	First           *history.Record `json:"first,omitempty"`
	Last            *history.Record `json:"last,omitempty"`
}

func summarize(b history.Bucket) ClientSummary {
	s := ClientSummary{
		ClientID:        b.ClientID,
		Requests:        len(b.Records),
		ByteSignature:   history.ByteSignature(b.Records),
		TimingSignature: history.TimingSignature(b.Records),
	}
	if n := len(b.Records); n > 0 {
		first, last := b.Records[0], b.Records[n-1]
		s.First, s.Last = &first, &last
	}
	return s
}

// ListClients handles GET /api/v1/clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	buckets, err := h.store.Clients(r.Context())
	if err != nil {
		rw.InternalError(ErrCodeStorageError, err)
		return
	}

	clients := make([]ClientSummary, 0, len(buckets))
	for _, b := range buckets {
		clients = append(clients, summarize(b))
	}
	rw.SuccessList(clients, len(clients))
}

// ClientHistory handles GET /api/v1/clients/{id}/history. Clients without
// records answer 404.
func (h *Handler) ClientHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	clientID := chi.URLParam(r, "id")

	records, err := h.store.History(r.Context(), clientID)
	if err != nil {
		rw.InternalError(ErrCodeStorageError, err)
		return
	}
	if len(records) == 0 {
		rw.NotFound("no history for client " + clientID)
		return
	}

	rw.Success(summaryWithRecords{
		ClientSummary: summarize(history.Bucket{ClientID: clientID, Records: records}),
		Records:       records,
	})
}

type summaryWithRecords struct {
	ClientSummary
	Records []history.Record `json:"records"`
}

// signalsQuery holds the GET /api/v1/signals parameters.
type signalsQuery struct {
	Limit int    `query:"limit" validate:"min=1,max=1000"`
	Kind  string `query:"kind" validate:"omitempty,signal_kind"`
}

// ListSignals handles GET /api/v1/signals, newest first.
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := signalsQuery{
		Limit: defaultSignalsLimit,
		Kind:  r.URL.Query().Get("kind"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		q.Limit = limit
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	var signals []*detection.Signal
	if q.Kind == "" {
		signals = h.dispatcher.Recent(q.Limit)
	} else {
		for _, s := range h.dispatcher.Recent(maxSignalsLimit) {
			if string(s.Kind) == q.Kind {
				signals = append(signals, s)
				if len(signals) == q.Limit {
					break
				}
			}
		}
	}
	if signals == nil {
		signals = []*detection.Signal{}
	}
	rw.SuccessList(signals, len(signals))
}

// StatsResponse is returned by GET /api/v1/stats.
type StatsResponse struct {
	Enabled        bool                  `json:"enabled"`
	TrackedClients int                   `json:"tracked_clients"`
	Engine         detection.EngineStats `json:"engine"`
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	buckets, err := h.store.Clients(r.Context())
	if err != nil {
		rw.InternalError(ErrCodeStorageError, err)
		return
	}

	rw.Success(StatsResponse{
		Enabled:        h.engine.Enabled(),
		TrackedClients: len(buckets),
		Engine:         h.engine.Stats(),
	})
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	GuardEnabled  bool   `json:"guard_enabled"`
	StoreHealthy  bool   `json:"store_healthy"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Health handles GET /health. A failing store reports 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	resp := HealthResponse{
		Status:        "healthy",
		GuardEnabled:  h.engine.Enabled(),
		StoreHealthy:  true,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	if _, _, err := h.store.LatestBucketHead(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("health check: store unavailable")
		resp.Status = "degraded"
		resp.StoreHealthy = false
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: resp, Meta: rw.meta()})
		return
	}
	rw.Success(resp)
}
