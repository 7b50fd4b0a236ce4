// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ManuGH/simgw/internal/control"
	"github.com/ManuGH/simgw/internal/daemon"
	"github.com/ManuGH/simgw/internal/sim"
)

// withPublisher opens the configured bus for one command and closes it after fn.
func withPublisher(ctx context.Context, opts *rootOptions, fn func(*control.BusPublisher) error) (err error) {
	_, cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	channels, err := daemon.ChannelsFromConfig(cfg.Bus.Channels)
	if err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	b, err := daemon.OpenBus(ctx, cfg.Bus)
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer func() { err = errors.Join(err, b.Close()) }()

	return fn(daemon.NewPublisher(b, channels, cfg.Bus))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newScenarioCmd(opts *rootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "scenario <name>",
		Short: "Run a scenario preset once against the bus",
		Long: `Publishes every command of a scenario preset in order and prints the
outcome. Use --list to show the available presets.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := control.DefaultPresets()
			if list {
				for _, p := range presets {
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", p.Name, p.Description)
				}
				return nil
			}
			if len(args) != 1 {
				return errors.New("scenario name required (see --list)")
			}

			return withPublisher(cmd.Context(), opts, func(pub *control.BusPublisher) error {
				result := control.NewOrchestrator(pub, presets).Run(cmd.Context(), args[0])
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("scenario %q failed: %s", args[0], result.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list scenario presets and exit")
	return cmd
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var c sim.Command

	cmd := &cobra.Command{
		Use:   "publish <action>",
		Short: "Publish one control command",
		Long: fmt.Sprintf(`Validates and publishes a single command on the control channel.
Delivery is not confirmed by the engine.

Actions: %v`, sim.Actions()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Action = args[0]
			if err := c.Validate(); err != nil {
				return err
			}
			return withPublisher(cmd.Context(), opts, func(pub *control.BusPublisher) error {
				if err := pub.Publish(cmd.Context(), c); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), struct {
					Success bool `json:"success"`
					sim.Command
				}{Success: true, Command: c})
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&c.Value, "value", 0, "generic value (setTimeScale, control actions)")
	f.StringVar(&c.ModuleID, "module-id", "", "target module id")
	f.IntVar(&c.FaultType, "fault-type", 0, "fault type code")
	f.Float64Var(&c.Severity, "severity", 0, "fault severity (0..1]")
	f.Float64Var(&c.Power, "power", 0, "power in watts")
	f.StringVar(&c.RackID, "rack-id", "", "target rack id")
	f.StringVar(&c.BusID, "bus-id", "", "target bus id")
	f.StringVar(&c.StationID, "station-id", "", "target station id")
	f.Float64Var(&c.Frequency, "frequency", 0, "grid frequency in Hz")
	return cmd
}
