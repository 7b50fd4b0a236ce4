// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError describes one rejected field.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e ValidationError) Unwrap() error { return ErrInvalidConfig }

// Validate rejects configurations the gateway cannot run with.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field string, value any, reason string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Reason: reason})
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		add("logLevel", cfg.LogLevel, "unknown level")
	}
	if cfg.API.ListenAddr == "" {
		add("api.listenAddr", cfg.API.ListenAddr, "must not be empty")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "" {
		add("metrics.listenAddr", cfg.Metrics.ListenAddr, "must not be empty when metrics are enabled")
	}

	switch cfg.Bus.Driver {
	case BusDriverRedis:
		u, err := url.Parse(cfg.Bus.URL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			add("bus.url", "***", "must be a redis:// or rediss:// URL")
		}
	case BusDriverMemory:
	default:
		add("bus.driver", cfg.Bus.Driver, "must be redis or memory")
	}

	ch := cfg.Bus.Channels
	seen := map[string]string{}
	for field, name := range map[string]string{
		"bus.channels.state":    ch.State,
		"bus.channels.module":   ch.Module,
		"bus.channels.busFleet": ch.BusFleet,
		"bus.channels.station":  ch.Station,
		"bus.channels.metrics":  ch.Metrics,
		"bus.channels.control":  ch.Control,
	} {
		if name == "" {
			add(field, name, "must not be empty")
			continue
		}
		if other, dup := seen[name]; dup {
			add(field, name, "duplicates "+other)
		}
		seen[name] = field
	}

	if cfg.Bus.PublishTimeout <= 0 {
		add("bus.publishTimeout", cfg.Bus.PublishTimeout, "must be positive")
	}
	if cfg.Bus.BreakerThreshold < 1 {
		add("bus.breakerThreshold", cfg.Bus.BreakerThreshold, "must be at least 1")
	}
	if cfg.Bus.BreakerReset <= 0 {
		add("bus.breakerReset", cfg.Bus.BreakerReset, "must be positive")
	}

	s := cfg.Session
	if s.QueueSize < 1 {
		add("session.queueSize", s.QueueSize, "must be at least 1")
	}
	if s.WriteTimeout <= 0 {
		add("session.writeTimeout", s.WriteTimeout, "must be positive")
	}
	if s.PingInterval <= 0 {
		add("session.pingInterval", s.PingInterval, "must be positive")
	}
	if s.PongTimeout <= s.PingInterval {
		add("session.pongTimeout", s.PongTimeout, "must exceed session.pingInterval")
	}
	if s.MaxMessageBytes < 1 {
		add("session.maxMessageBytes", s.MaxMessageBytes, "must be positive")
	}
	if s.InboundRate <= 0 {
		add("session.inboundRate", s.InboundRate, "must be positive")
	}
	if s.InboundBurst < 1 {
		add("session.inboundBurst", s.InboundBurst, "must be at least 1")
	}

	if cfg.Server.ShutdownTimeout <= 0 {
		add("server.shutdownTimeout", cfg.Server.ShutdownTimeout, "must be positive")
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute < 1 {
		add("rateLimit.requestsPerMinute", cfg.RateLimit.RequestsPerMinute, "must be at least 1 when enabled")
	}
	if cfg.Tracing.Enabled {
		if cfg.Tracing.Exporter != "grpc" && cfg.Tracing.Exporter != "http" {
			add("tracing.exporter", cfg.Tracing.Exporter, "must be grpc or http")
		}
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			add("tracing.samplingRate", cfg.Tracing.SamplingRate, "must be within [0,1]")
		}
	}

	return errors.Join(errs...)
}
