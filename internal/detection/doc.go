// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

// Package detection classifies HTTP byte-range requests per client to spot
// automated downloaders, enforce behavioral trait policies, find clients
// that behave identically, and recognize when a resource has been fully
// retrieved through several partial requests.
//
// Detection Architecture:
//
//	Range header -> Engine.Classify -> Hooks -> Dispatcher -> Notifiers
//	                    |                           |
//	                    v                           v
//	              history.Store               Log/Webhook/Discord/NATS/WebSocket
//
// Each classification pass parses the header, runs the robotic heuristics
// and threshold monitors, validates every new record against the client's
// previous one using the configured traits, appends it, and then scans all
// client histories for identical byte and timing signatures before checking
// for completion.
//
// Signals:
//   - Robotic: absent, empty, malformed, digits, negative
//   - Range overflow: too many parts, or an end offset past the resource size
//   - Deadline: too much time since the reference activity
//   - Similar trait / similar timestamp: another client shares a signature
//   - Downloaded: the client's ranges cover the resource contiguously
//
// Signals are advisory. The only enforcement is a trait violation, which is
// returned as a Rejected Verdict and leaves the offending record unstored.
package detection
