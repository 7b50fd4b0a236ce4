// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/ManuGH/simgw/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownPreset is reported for scenario names outside the preset table.
var ErrUnknownPreset = errors.New("unknown scenario")

// Step is one command of a preset, optionally preceded by a delay.
type Step struct {
	Delay   time.Duration
	Command sim.Command
}

// Preset is a named, immutable command sequence.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"-"`
}

// Commands returns the preset's commands in submission order.
func (p Preset) Commands() []sim.Command {
	out := make([]sim.Command, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Command
	}
	return out
}

const (
	cascadeFirstModule = 20
	cascadeFaults      = 5
)

// DefaultPresets returns the built-in scenarios.
func DefaultPresets() []Preset {
	cascade := make([]Step, 0, cascadeFaults)
	for i := 0; i < cascadeFaults; i++ {
		cascade = append(cascade, Step{Command: sim.Command{
			Action:    sim.ActionInjectFault,
			ModuleID:  fmt.Sprintf("mod-%03d", cascadeFirstModule+i),
			FaultType: 1,
			Severity:  0.8,
		}})
	}

	return []Preset{
		{
			Name:        "normal",
			Description: "Standard day with moderate load",
			Steps:       []Step{{Command: sim.Command{Action: sim.ActionSetTimeScale, Value: 10}}},
		},
		{
			Name:        "peak",
			Description: "250kW demand spike",
			Steps:       []Step{{Command: sim.Command{Action: sim.ActionDistributeRackPower, RackID: "rack-00", Power: 250000}}},
		},
		{
			Name:        "module-failure",
			Description: "Single module fault",
			Steps:       []Step{{Command: sim.Command{Action: sim.ActionInjectFault, ModuleID: "mod-042", FaultType: 1, Severity: 0.8}}},
		},
		{
			Name:        "cascade",
			Description: "5 simultaneous faults",
			Steps:       cascade,
		},
		{
			Name:        "v2g-response",
			Description: "Grid frequency dip triggers V2G",
			Steps:       []Step{{Command: sim.Command{Action: sim.ActionTriggerV2G, Frequency: 49.8}}},
		},
	}
}

// Result is the outcome of a scenario run as reported to callers.
type Result struct {
	Success  bool          `json:"success"`
	Scenario string        `json:"scenario"`
	Commands []sim.Command `json:"commands,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Orchestrator expands presets into ordered publisher calls.
type Orchestrator struct {
	pub     Publisher
	presets map[string]Preset
	order   []Preset
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewOrchestrator creates an orchestrator over presets. Later duplicates of a
// name replace earlier ones.
func NewOrchestrator(pub Publisher, presets []Preset) *Orchestrator {
	o := &Orchestrator{
		pub:     pub,
		presets: make(map[string]Preset, len(presets)),
		logger:  xglog.WithComponent("scenario"),
		tracer:  telemetry.Tracer("simgw/control"),
	}
	for _, p := range presets {
		if _, dup := o.presets[p.Name]; !dup {
			o.order = append(o.order, p)
		}
		o.presets[p.Name] = p
	}
	return o
}

// Presets returns the presets in table order.
func (o *Orchestrator) Presets() []Preset {
	out := make([]Preset, len(o.order))
	for i, p := range o.order {
		out[i] = o.presets[p.Name]
	}
	return out
}

// Lookup returns the named preset.
func (o *Orchestrator) Lookup(name string) (Preset, bool) {
	p, ok := o.presets[name]
	return p, ok
}

// Run submits every command of the named preset in order on the caller's
// goroutine. A failed publish is logged and does not stop later commands;
// success means every command was submitted, not delivered. Unknown names
// issue nothing.
func (o *Orchestrator) Run(ctx context.Context, name string) Result {
	preset, ok := o.presets[name]
	if !ok {
		metrics.IncScenario(name, metrics.ResultUnknown)
		o.logger.Warn().
			Str(xglog.FieldEvent, "scenario.unknown").
			Str(xglog.FieldScenario, name).
			Msg("rejected unknown scenario")
		return Result{Scenario: name, Error: fmt.Sprintf("%v: %s", ErrUnknownPreset, name)}
	}

	ctx, span := o.tracer.Start(ctx, "control.scenario",
		trace.WithAttributes(telemetry.ScenarioAttributes(name, len(preset.Steps))...))
	defer span.End()

	logger := xglog.WithContext(ctx, o.logger)
	failed := 0
	for i, step := range preset.Steps {
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-ctx.Done():
				metrics.IncScenario(name, metrics.ResultError)
				return Result{Scenario: name, Commands: preset.Commands()[:i], Error: ctx.Err().Error()}
			}
		}
		if err := o.pub.Publish(ctx, step.Command); err != nil {
			failed++
			logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "scenario.step_failed").
				Str(xglog.FieldScenario, name).
				Int("step", i).
				Msg("scenario command not handed to bus")
		}
	}

	metrics.IncScenario(name, metrics.ResultOK)
	logger.Info().
		Str(xglog.FieldEvent, "scenario.submitted").
		Str(xglog.FieldScenario, name).
		Int("commands", len(preset.Steps)).
		Int("failed", failed).
		Msg("scenario submitted")
	return Result{Success: true, Scenario: name, Commands: preset.Commands()}
}
