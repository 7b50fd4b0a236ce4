// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package control turns control intents into commands on the bus.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/simgw/internal/bus"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/resilience"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/ManuGH/simgw/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Publisher hands commands to the simulation engine.
//
// Publishing is fire-and-forget. There is no acknowledgement, correlation id
// or retry: a nil error means the bus accepted the command, not that the
// engine received or applied it. Callers must not assume delivery.
type Publisher interface {
	Publish(ctx context.Context, cmd sim.Command) error
}

// PublisherOptions tunes BusPublisher.
type PublisherOptions struct {
	// Timeout bounds one publish call.
	Timeout time.Duration
	// BreakerThreshold is the number of consecutive failures that open the breaker.
	BreakerThreshold int
	// BreakerReset is how long the breaker stays open before probing.
	BreakerReset time.Duration
}

// BusPublisher publishes commands to the control channel of a bus.
type BusPublisher struct {
	bus     bus.Bus
	channel string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewBusPublisher creates a publisher for channel.
func NewBusPublisher(b bus.Bus, channel string, opts PublisherOptions) *BusPublisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &BusPublisher{
		bus:     b,
		channel: channel,
		timeout: opts.Timeout,
		breaker: resilience.NewCircuitBreaker("bus_publish", opts.BreakerThreshold, opts.BreakerReset),
		logger:  xglog.WithComponent("control"),
		tracer:  telemetry.Tracer("simgw/control"),
	}
}

// Publish validates, encodes and publishes cmd.
func (p *BusPublisher) Publish(ctx context.Context, cmd sim.Command) error {
	if err := cmd.Validate(); err != nil {
		metrics.IncCommand(cmd.Action, metrics.ResultError)
		return err
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		metrics.IncCommand(cmd.Action, metrics.ResultError)
		return fmt.Errorf("encode command: %w", err)
	}

	ctx, span := p.tracer.Start(ctx, "control.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(telemetry.CommandAttributes(p.channel, cmd.Action, target(cmd))...),
	)
	defer span.End()

	err = p.breaker.Execute(ctx, func(ctx context.Context) error {
		pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.bus.Publish(pubCtx, p.channel, payload)
	})

	logger := xglog.WithContext(ctx, p.logger)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, resilience.ErrCircuitOpen) {
			result = metrics.ResultCircuitOpen
		}
		metrics.IncCommand(cmd.Action, result)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "command.publish_failed").
			Str(xglog.FieldAction, cmd.Action).
			Str(xglog.FieldChannel, p.channel).
			Msg("control command not handed to bus")
		return fmt.Errorf("publish %s: %w", cmd.Action, err)
	}

	metrics.IncCommand(cmd.Action, metrics.ResultOK)
	logger.Info().
		Str(xglog.FieldEvent, "command.published").
		Str(xglog.FieldAction, cmd.Action).
		Str(xglog.FieldChannel, p.channel).
		RawJSON("command", payload).
		Msg("control command published")
	return nil
}

// BreakerState reports the publish circuit breaker state.
func (p *BusPublisher) BreakerState() resilience.State {
	return p.breaker.State()
}

func target(cmd sim.Command) string {
	switch {
	case cmd.ModuleID != "":
		return cmd.ModuleID
	case cmd.RackID != "":
		return cmd.RackID
	case cmd.BusID != "":
		return cmd.BusID
	}
	return ""
}

var _ Publisher = (*BusPublisher)(nil)
