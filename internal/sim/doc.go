// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sim defines the gateway's data model: bus topics, cached
// snapshots, client envelopes, control commands and the payload schemas
// published by the simulation engine.
//
// Payloads are validated against their topic schema but cached and forwarded
// as the raw bytes received, so fields the gateway does not model still reach
// clients unchanged.
package sim
