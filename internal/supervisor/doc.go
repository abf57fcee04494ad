// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package supervisor runs the long-lived parts of RangeGuard under a suture v4
supervisor tree.

The tree has three layers so a crashing notifier cannot take down the HTTP
server:

	rangeguard (root)
	├── storage-layer   Badger value log GC
	├── notify-layer    signal dispatcher drain, NATS connection, WebSocket hub
	└── api-layer       HTTP server

Supervisor events are logged through sutureslog, backed by the zerolog
adapter in the logging package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Services live in the services subpackage.
*/
package supervisor
