// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/rangeguard/internal/api"
	"github.com/tomtom215/rangeguard/internal/config"
	"github.com/tomtom215/rangeguard/internal/detection"
	"github.com/tomtom215/rangeguard/internal/logging"
	"github.com/tomtom215/rangeguard/internal/supervisor"
	"github.com/tomtom215/rangeguard/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.ToLogging())
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("files_dir", cfg.Server.FilesDir).
		Str("storage", cfg.Storage.Backend).
		Bool("guard_enabled", cfg.Guard.Enabled).
		Msg("Starting RangeGuard")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("RangeGuard stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing history store")
		}
	}()

	dispatcher := detection.NewDispatcher(cfg.Guard.RecentSignals)
	hub, closers := registerNotifiers(dispatcher, cfg.Notifiers)

	engine, err := newEngine(cfg.Guard, store, dispatcher)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.NewHandler(engine, dispatcher, cfg.Server.FilesDir), api.RouterConfig{
		Middleware:   api.ChiMiddlewareConfigFrom(cfg.API),
		ClientHeader: cfg.Guard.ClientHeader,
		SignalHub:    hub,
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return err
	}

	if gc := store.GC(); gc != nil {
		tree.AddStorageService(services.NewBadgerGCService(gc, cfg.Storage.GCInterval, cfg.Storage.GCDiscardRatio, nil))
	}
	tree.AddNotifyService(services.NewDispatcherService(dispatcher, closers...))
	if hub != nil {
		tree.AddNotifyService(services.NewWebSocketHubService(hub))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newEngine builds the classification engine with the dispatcher's hooks.
func newEngine(cfg config.GuardConfig, store *historyStore, dispatcher *detection.Dispatcher) (*detection.Engine, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	engine := detection.NewEngine(store.Store, engineCfg, dispatcher.Hooks())
	engine.SetEnabled(cfg.Enabled)
	if !cfg.Enabled {
		logging.Info().Msg("Range classification disabled (RANGEGUARD_ENABLED=false)")
	}
	return engine, nil
}
