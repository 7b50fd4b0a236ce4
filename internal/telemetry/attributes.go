// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by gateway spans.
const (
	BusChannelKey = "bus.channel"
	BusTopicKey   = "bus.topic"

	CommandActionKey = "command.action"
	CommandTargetKey = "command.target"

	ScenarioNameKey     = "scenario.name"
	ScenarioCommandsKey = "scenario.commands"

	SessionIDKey = "session.id"
)

// CommandAttributes describes one control command. target is the module,
// rack or bus the command addresses, if any.
func CommandAttributes(channel, action, target string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(BusChannelKey, channel),
		attribute.String(CommandActionKey, action),
	}
	if target != "" {
		attrs = append(attrs, attribute.String(CommandTargetKey, target))
	}
	return attrs
}

// ScenarioAttributes describes a scenario run.
func ScenarioAttributes(name string, commands int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ScenarioNameKey, name),
		attribute.Int(ScenarioCommandsKey, commands),
	}
}
