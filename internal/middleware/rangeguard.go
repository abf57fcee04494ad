// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/history"
	"github.com/tomtom215/rangeguard/internal/logging"
)

const chunksKey contextKey = "range_chunks"

// RangeGuardOptions configures the RangeGuard middleware.
type RangeGuardOptions struct {
	// KeyFunc identifies the client. Defaults to httprate.KeyByRealIP.
	KeyFunc httprate.KeyFunc
}

// rejectionResponse mirrors the API error envelope.
type rejectionResponse struct {
	Success bool           `json:"success"`
	Error   rejectionError `json:"error"`
}

type rejectionError struct {
	Code      string               `json:"code"`
	Message   string               `json:"message"`
	Details   *detection.Rejection `json:"details,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
}

// RangeGuard classifies every request with engine before it reaches next.
func RangeGuard(engine *detection.Engine, opts RangeGuardOptions) func(http.Handler) http.Handler {
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByRealIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, err := keyFunc(r)
			if err != nil || clientID == "" {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("could not identify client, range classification skipped")
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(logging.ContextWithClientID(r.Context(), clientID))
			req := &detection.Request{
				ClientID: clientID,
				Range:    r.Header.Get("Range"),
				HasRange: len(r.Header.Values("Range")) > 0,
				HTTP:     r,
			}

			gw := &guardWriter{ResponseWriter: w}
			continueRequested := false
			verdict, err := engine.Classify(r.Context(), req, gw, func() {
				continueRequested = true
			})

			serve := func() {
				ctx := r.Context()
				if req.Chunks != nil {
					ctx = context.WithValue(ctx, chunksKey, req.Chunks)
				}
				next.ServeHTTP(gw, r.WithContext(ctx))
			}

			switch {
			case err != nil:
				logging.Ctx(r.Context()).Error().Err(err).Msg("range classification failed, serving request")
				if continueRequested || !gw.written {
					serve()
				}
			case verdict.Rejected():
				if !gw.written {
					writeRejection(gw, r, verdict.Rejection)
				}
			default:
				if continueRequested || !gw.written {
					serve()
				}
			}
		})
	}
}

// ChunksFromContext returns the client's records attached by RangeGuard
// after an accepted classification, in arrival order.
func ChunksFromContext(ctx context.Context) []history.Record {
	chunks, _ := ctx.Value(chunksKey).([]history.Record)
	return chunks
}

func writeRejection(w http.ResponseWriter, r *http.Request, rejection *detection.Rejection) {
	code := "range_rejected"
	if rejection != nil {
		switch {
		case errors.Is(rejection, detection.ErrBannedTrait):
			code = "banned_trait"
		case errors.Is(rejection, detection.ErrAllowedTrait):
			code = "allowed_trait"
		}
	}

	body := rejectionResponse{
		Error: rejectionError{
			Code:      code,
			Message:   "range request rejected",
			Details:   rejection,
			RequestID: GetRequestID(r.Context()),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write rejection")
	}
}

// guardWriter records whether a hook has started a response.
type guardWriter struct {
	http.ResponseWriter
	written bool
}

func (g *guardWriter) WriteHeader(code int) {
	g.written = true
	g.ResponseWriter.WriteHeader(code)
}

func (g *guardWriter) Write(b []byte) (int, error) {
	g.written = true
	return g.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (g *guardWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}
