// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/rangeguard/internal/middleware"
	"github.com/tomtom215/rangeguard/internal/websocket"
)

// chiMiddleware adapts http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Middleware *ChiMiddlewareConfig

	// ClientHeader identifies download clients by this header instead of
	// the real client IP.
	ClientHeader string

	// SignalHub enables GET /api/v1/signals/stream when set.
	SignalHub *websocket.Hub
}

// Router owns the chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	guard         func(http.Handler) http.Handler
	stream        *signalStream
}

// NewRouter builds the router around handler.
func NewRouter(handler *Handler, cfg RouterConfig) *Router {
	keyFunc := httprate.KeyByRealIP
	if cfg.ClientHeader != "" {
		header := cfg.ClientHeader
		keyFunc = func(r *http.Request) (string, error) {
			return r.Header.Get(header), nil
		}
	}

	if cfg.Middleware == nil {
		cfg.Middleware = DefaultChiMiddlewareConfig()
	}

	router := &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(cfg.Middleware),
		guard:         middleware.RangeGuard(handler.engine, middleware.RangeGuardOptions{KeyFunc: keyFunc}),
	}
	if cfg.SignalHub != nil {
		router.stream = &signalStream{hub: cfg.SignalHub, origins: cfg.Middleware.CORSAllowedOrigins}
	}
	return router
}

// Setup returns the configured http.Handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/files", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.guard)
		r.Get("/*", router.handler.ServeFile)
		r.Head("/*", router.handler.ServeFile)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.CORS())
		r.Use(router.chiMiddleware.RateLimit())

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware(middleware.PrometheusMetrics))

			r.Get("/clients", router.handler.ListClients)
			r.Get("/clients/{id}/history", router.handler.ClientHistory)
			r.Get("/signals", router.handler.ListSignals)
			r.Get("/stats", router.handler.Stats)
		})

		// The stream hijacks the connection, so it skips the metrics writer.
		if router.stream != nil {
			r.Get("/signals/stream", router.stream.ServeHTTP)
		}
	})

	return r
}
