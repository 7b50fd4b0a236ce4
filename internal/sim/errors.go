// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import "errors"

var (
	// ErrUnknownTopic is returned for topics or channels outside the fixed set.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrSchemaMismatch is returned when a payload does not match its topic schema.
	ErrSchemaMismatch = errors.New("payload does not match topic schema")

	// ErrUnknownAction is returned for commands the engine does not accept.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidCommand is returned when a command lacks a required parameter.
	ErrInvalidCommand = errors.New("invalid command")
)
