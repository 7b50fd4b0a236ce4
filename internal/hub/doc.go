// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hub fans simulation events out to WebSocket sessions.
//
// The Broadcaster owns the live-session set. Each Session has a bounded
// outbound queue drained by its own writer goroutine; Broadcast only ever
// performs non-blocking enqueues, so one stalled client cannot delay the
// others. A session whose queue is full is dropped as a slow consumer.
//
// The Manager accepts WebSocket upgrades, replays the cached snapshots to
// the new session and registers it with the Broadcaster.
package hub
