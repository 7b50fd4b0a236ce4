// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/simgw/internal/api"
	"github.com/ManuGH/simgw/internal/bus"
	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/config"
	"github.com/ManuGH/simgw/internal/control"
	"github.com/ManuGH/simgw/internal/health"
	"github.com/ManuGH/simgw/internal/hub"
	"github.com/ManuGH/simgw/internal/ingest"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/ManuGH/simgw/internal/telemetry"
)

const (
	busDialTimeout         = 5 * time.Second
	busPingTimeout         = 2 * time.Second
	subscriptionStaleAfter = time.Minute
)

// Runtime is the wired gateway: one bus client shared by the subscription
// and the command publisher, the topic cache, the session hub and the API.
type Runtime struct {
	Config       config.AppConfig
	Channels     sim.Channels
	Bus          bus.Bus
	Cache        *cache.TopicCache
	Broadcaster  *hub.Broadcaster
	Sessions     *hub.Manager
	Ingest       *ingest.Subscriber
	Publisher    *control.BusPublisher
	Orchestrator *control.Orchestrator
	Health       *health.Manager
	API          *api.Server
	Telemetry    *telemetry.Provider
}

// ChannelsFromConfig maps configured channel names to topics.
func ChannelsFromConfig(c config.ChannelConfig) (sim.Channels, error) {
	return sim.NewChannels(map[sim.Topic]string{
		sim.TopicState:    c.State,
		sim.TopicModule:   c.Module,
		sim.TopicBusFleet: c.BusFleet,
		sim.TopicStation:  c.Station,
		sim.TopicMetrics:  c.Metrics,
		sim.TopicControl:  c.Control,
	})
}

// OpenBus connects the configured bus driver.
func OpenBus(ctx context.Context, cfg config.BusConfig) (bus.Bus, error) {
	switch cfg.Driver {
	case config.BusDriverRedis:
		return bus.NewRedisBus(ctx, bus.RedisOptions{URL: cfg.URL, DialTimeout: busDialTimeout})
	case config.BusDriverMemory:
		return bus.NewMemoryBus(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBusDriver, cfg.Driver)
	}
}

// NewPublisher builds the command publisher for the configured control channel.
func NewPublisher(b bus.Bus, channels sim.Channels, cfg config.BusConfig) *control.BusPublisher {
	return control.NewBusPublisher(b, channels.Control(), control.PublisherOptions{
		Timeout:          cfg.PublishTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerReset:     cfg.BreakerReset,
	})
}

func sessionOptions(c config.SessionConfig) hub.SessionOptions {
	return hub.SessionOptions{
		QueueSize:       c.QueueSize,
		WriteTimeout:    c.WriteTimeout,
		PingInterval:    c.PingInterval,
		PongTimeout:     c.PongTimeout,
		MaxMessageBytes: c.MaxMessageBytes,
		InboundRate:     c.InboundRate,
		InboundBurst:    c.InboundBurst,
	}
}

// Build wires the gateway and confirms the inbound subscription. When b is
// nil the bus is opened from cfg; otherwise the runtime takes ownership of b.
// On error everything acquired so far is released.
func Build(ctx context.Context, cfg config.AppConfig, b bus.Bus) (_ *Runtime, err error) {
	logger := xglog.WithComponent("daemon")
	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			rt.release(context.WithoutCancel(ctx))
		}
	}()

	rt.Telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "telemetry.init_failed").
			Msg("Telemetry initialization failed, continuing without tracing")
		rt.Telemetry, err = nil, nil
	}

	rt.Channels, err = ChannelsFromConfig(cfg.Bus.Channels)
	if err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}

	if b == nil {
		b, err = OpenBus(ctx, cfg.Bus)
		if err != nil {
			return nil, fmt.Errorf("open bus: %w", err)
		}
	}
	rt.Bus = b

	rt.Cache = cache.New()
	rt.Broadcaster = hub.NewBroadcaster()
	rt.Sessions = hub.NewManager(rt.Cache, rt.Broadcaster, sessionOptions(cfg.Session), cfg.CORS.AllowedOrigins)

	rt.Ingest = ingest.New(rt.Bus, rt.Channels, rt.Cache, rt.Broadcaster, ingest.Options{})
	if err = rt.Ingest.Start(ctx); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	rt.Publisher = NewPublisher(rt.Bus, rt.Channels, cfg.Bus)
	rt.Orchestrator = control.NewOrchestrator(rt.Publisher, control.DefaultPresets())

	rt.Health = health.NewManager(cfg.Version)
	rt.Health.RegisterChecker(health.NewBusChecker(rt.Bus, busPingTimeout))
	rt.Health.RegisterChecker(health.NewSubscriptionChecker(rt.Ingest, subscriptionStaleAfter))

	rt.API, err = api.New(cfg, api.Deps{
		Cache:        rt.Cache,
		Sessions:     rt.Broadcaster,
		WebSocket:    rt.Sessions,
		Publisher:    rt.Publisher,
		Orchestrator: rt.Orchestrator,
		Health:       rt.Health,
		Subscription: rt.Ingest,
		Breaker:      rt.Publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "runtime.ready").
		Str("bus_driver", cfg.Bus.Driver).
		Strs("channels", rt.Channels.Inbound()).
		Str("control_channel", rt.Channels.Control()).
		Msg("gateway wired")
	return rt, nil
}

// RegisterShutdownHooks registers the runtime's teardown with the manager.
// Hooks run LIFO, so sessions close first, then the subscription, the bus
// and finally the tracer.
func (rt *Runtime) RegisterShutdownHooks(m Manager) {
	m.RegisterShutdownHook("telemetry", rt.shutdownTelemetry)
	m.RegisterShutdownHook("bus", func(context.Context) error {
		return rt.Bus.Close()
	})
	m.RegisterShutdownHook("subscription", func(context.Context) error {
		return rt.Ingest.Close()
	})
	m.RegisterShutdownHook("sessions", rt.closeSessions)
}

func (rt *Runtime) closeSessions(ctx context.Context) error {
	rt.Broadcaster.Close()

	done := make(chan struct{})
	go func() {
		rt.Sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sessions did not drain: %w", ctx.Err())
	}
}

func (rt *Runtime) shutdownTelemetry(ctx context.Context) error {
	if rt.Telemetry == nil {
		return nil
	}
	return rt.Telemetry.Shutdown(ctx)
}

// Close releases the runtime without a manager, for example when the
// manager could not be created after a successful Build.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Broadcaster != nil && rt.Sessions != nil {
		errs = append(errs, rt.closeSessions(ctx))
	}
	if rt.Ingest != nil {
		errs = append(errs, rt.Ingest.Close())
	}
	if rt.Bus != nil {
		errs = append(errs, rt.Bus.Close())
	}
	errs = append(errs, rt.shutdownTelemetry(ctx))
	return errors.Join(errs...)
}

// release undoes a partial Build.
func (rt *Runtime) release(ctx context.Context) {
	if err := rt.Close(ctx); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Warn().Err(err).Str(xglog.FieldEvent, "runtime.release_failed").Msg("releasing partial runtime")
	}
}
