// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"fmt"
	"sort"
)

// Actions accepted by the simulation engine on the control topic.
const (
	ActionStart               = "start"
	ActionStop                = "stop"
	ActionPause               = "pause"
	ActionResume              = "resume"
	ActionSetTimeScale        = "setTimeScale"
	ActionInjectFault         = "injectFault"
	ActionSetModulePower      = "setModulePower"
	ActionDistributeRackPower = "distributeRackPower"
	ActionQueueBusForSwap     = "queueBusForSwap"
	ActionTriggerV2G          = "triggerV2G"
)

var actionRequires = map[string]func(Command) error{
	ActionStart:  nil,
	ActionStop:   nil,
	ActionPause:  nil,
	ActionResume: nil,
	ActionSetTimeScale: func(c Command) error {
		if c.Value <= 0 {
			return fmt.Errorf("value must be positive")
		}
		return nil
	},
	ActionInjectFault: func(c Command) error {
		if c.ModuleID == "" {
			return fmt.Errorf("moduleId is required")
		}
		if c.Severity < 0 || c.Severity > 1 {
			return fmt.Errorf("severity must be within [0,1]")
		}
		return nil
	},
	ActionSetModulePower: func(c Command) error {
		if c.ModuleID == "" {
			return fmt.Errorf("moduleId is required")
		}
		if c.Power < 0 {
			return fmt.Errorf("power must not be negative")
		}
		return nil
	},
	ActionDistributeRackPower: func(c Command) error {
		if c.RackID == "" {
			return fmt.Errorf("rackId is required")
		}
		if c.Power < 0 {
			return fmt.Errorf("power must not be negative")
		}
		return nil
	},
	ActionQueueBusForSwap: func(c Command) error {
		if c.BusID == "" || c.StationID == "" {
			return fmt.Errorf("busId and stationId are required")
		}
		return nil
	},
	ActionTriggerV2G: func(c Command) error {
		if c.Frequency <= 0 {
			return fmt.Errorf("frequency must be positive")
		}
		return nil
	},
}

// Actions lists every known action, sorted.
func Actions() []string {
	out := make([]string, 0, len(actionRequires))
	for a := range actionRequires {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// KnownAction reports whether the engine accepts action.
func KnownAction(action string) bool {
	_, ok := actionRequires[action]
	return ok
}

// Command is a control intent for the simulation engine. Zero-valued
// parameters are omitted on the wire.
type Command struct {
	Action    string  `json:"action"`
	Value     float64 `json:"value,omitempty"`
	ModuleID  string  `json:"moduleId,omitempty"`
	FaultType int     `json:"faultType,omitempty"`
	Severity  float64 `json:"severity,omitempty"`
	Power     float64 `json:"power,omitempty"`
	RackID    string  `json:"rackId,omitempty"`
	BusID     string  `json:"busId,omitempty"`
	StationID string  `json:"stationId,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
}

// Validate checks the action is known and its required parameters are set.
func (c Command) Validate() error {
	check, ok := actionRequires[c.Action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	if check == nil {
		return nil
	}
	if err := check(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCommand, c.Action, err)
	}
	return nil
}
