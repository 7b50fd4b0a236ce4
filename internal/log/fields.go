// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Bus fields
	FieldTopic   = "topic"
	FieldChannel = "channel"
	FieldAction  = "action"

	// Scenario fields
	FieldScenario = "scenario"

	// Network fields
	FieldRemoteAddr = "remote_addr"
)
