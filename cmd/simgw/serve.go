// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ManuGH/simgw/internal/config"
	"github.com/ManuGH/simgw/internal/daemon"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	loader, cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := xglog.WithComponent("daemon")

	source := "env+defaults"
	if loader.Path() != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("config_source", source).
		Str("addr", cfg.API.ListenAddr).
		Str("bus_driver", cfg.Bus.Driver).
		Msg("starting simgw")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := daemon.Build(ctx, cfg, nil)
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "runtime.build_failed").
			Msg("failed to wire gateway")
		return err
	}

	metricsAddr := ""
	if cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.ListenAddr
	}
	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:         logger,
		Config:         cfg,
		APIHandler:     rt.API.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    metricsAddr,
	})
	if err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "manager.creation.failed").
			Msg("failed to create daemon manager")
		return err
	}
	rt.RegisterShutdownHooks(mgr)

	app := daemon.NewApp(logger, mgr, rt, config.NewHolder(cfg, loader))
	if err := app.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "manager.failed").
			Msg("daemon app failed")
		return err
	}

	logger.Info().Msg("server exiting")
	return nil
}
