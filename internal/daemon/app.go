// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the gateway runtime and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/simgw/internal/config"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (ingest loop, config watcher,
// reload wiring) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	runtime      *Runtime
	cfgHolder    *config.Holder
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, manager Manager, rt *Runtime, cfgHolder *config.Holder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		runtime:      rt,
		cfgHolder:    cfgHolder,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.runtime == nil {
		return ErrMissingRuntime
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.runtime.Ingest.Run(ctx); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return nil
	})

	if a.cfgHolder != nil {
		// Watcher failures are not fatal; the file is simply not reloaded.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hupChan := make(chan os.Signal, 1)
				signal.Notify(hupChan, a.reloadSignal)
				defer signal.Stop(hupChan)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hupChan:
						a.logger.Info().
							Str(xglog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						// Reload logs its own failure.
						_ = a.cfgHolder.Reload()
					}
				}
			})
		}
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.WithoutCancel(ctx))
		}
		return err
	})

	return g.Wait()
}

// applyConfig applies the settings that can change without a restart.
func (a *App) applyConfig(cfg config.AppConfig) {
	if err := xglog.SetLevel(cfg.LogLevel); err != nil {
		a.logger.Warn().
			Err(err).
			Str("level", cfg.LogLevel).
			Msg("ignoring invalid log level from reloaded config")
		return
	}
	a.logger.Info().
		Str(xglog.FieldEvent, "config.applied").
		Str("log_level", cfg.LogLevel).
		Msg("applied reloaded configuration")
}
