// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/simgw/internal/config"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/version"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "simgw",
		Short: "Real-time simulation telemetry gateway",
		Long: `simgw bridges the simulation engine's pub/sub bus to WebSocket clients
and forwards control commands and scenario presets back to the engine.

Without a subcommand it runs the gateway (same as "simgw serve").`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(opts),
		newScenarioCmd(opts),
		newPublishCmd(opts),
		newHealthcheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the configuration and configures the global logger from it.
func loadConfig(opts *rootOptions) (*config.Loader, config.AppConfig, error) {
	loader := config.NewLoader(strings.TrimSpace(opts.configPath), version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger := xglog.WithComponent("cli")
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", loader.Path()).
			Msg("failed to load configuration")
		return nil, cfg, fmt.Errorf("load config: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	return loader, cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simgw %s\n", version.String())
		},
	}
}
