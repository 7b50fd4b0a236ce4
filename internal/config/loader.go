// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds an AppConfig from defaults, an optional YAML file and the environment.
type Loader struct {
	configPath string
	version    string
	lookup     LookupFunc
}

// NewLoader creates a loader reading configPath (may be empty) and the process environment.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version, lookup: os.LookupEnv}
}

// WithLookup replaces the environment source. Used by tests.
func (l *Loader) WithLookup(lookup LookupFunc) *Loader {
	l.lookup = lookup
	return l
}

// Path returns the config file path, if any.
func (l *Loader) Path() string {
	return l.configPath
}

// Load merges the configuration sources with precedence ENV > File > Defaults.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
		if err := mergeFile(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	mergeEnv(&cfg, newEnv(l.lookup))

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

// parseFile decodes YAML strictly: unknown fields and trailing documents are errors.
func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFile(dst *AppConfig, src *FileConfig) error {
	var errs []error
	dur := func(field, raw string, into *time.Duration) {
		if raw == "" {
			return
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*into = d
	}
	str := func(raw string, into *string) {
		if raw != "" {
			*into = raw
		}
	}

	str(src.LogLevel, &dst.LogLevel)
	str(src.LogService, &dst.LogService)

	if a := src.API; a != nil {
		str(a.ListenAddr, &dst.API.ListenAddr)
	}
	if m := src.Metrics; m != nil {
		if m.Enabled != nil {
			dst.Metrics.Enabled = *m.Enabled
		}
		str(m.ListenAddr, &dst.Metrics.ListenAddr)
	}
	if s := src.Server; s != nil {
		dur("server.readTimeout", s.ReadTimeout, &dst.Server.ReadTimeout)
		dur("server.writeTimeout", s.WriteTimeout, &dst.Server.WriteTimeout)
		dur("server.idleTimeout", s.IdleTimeout, &dst.Server.IdleTimeout)
		dur("server.shutdownTimeout", s.ShutdownTimeout, &dst.Server.ShutdownTimeout)
		if s.MaxHeaderBytes != nil {
			dst.Server.MaxHeaderBytes = *s.MaxHeaderBytes
		}
	}
	if b := src.Bus; b != nil {
		str(b.Driver, &dst.Bus.Driver)
		str(b.URL, &dst.Bus.URL)
		dur("bus.publishTimeout", b.PublishTimeout, &dst.Bus.PublishTimeout)
		dur("bus.breakerReset", b.BreakerReset, &dst.Bus.BreakerReset)
		if b.BreakerThreshold != nil {
			dst.Bus.BreakerThreshold = *b.BreakerThreshold
		}
		if c := b.Channels; c != nil {
			str(c.State, &dst.Bus.Channels.State)
			str(c.Module, &dst.Bus.Channels.Module)
			str(c.BusFleet, &dst.Bus.Channels.BusFleet)
			str(c.Station, &dst.Bus.Channels.Station)
			str(c.Metrics, &dst.Bus.Channels.Metrics)
			str(c.Control, &dst.Bus.Channels.Control)
		}
	}
	if s := src.Session; s != nil {
		if s.QueueSize != nil {
			dst.Session.QueueSize = *s.QueueSize
		}
		dur("session.writeTimeout", s.WriteTimeout, &dst.Session.WriteTimeout)
		dur("session.pingInterval", s.PingInterval, &dst.Session.PingInterval)
		dur("session.pongTimeout", s.PongTimeout, &dst.Session.PongTimeout)
		if s.MaxMessageBytes != nil {
			dst.Session.MaxMessageBytes = *s.MaxMessageBytes
		}
		if s.InboundRate != nil {
			dst.Session.InboundRate = *s.InboundRate
		}
		if s.InboundBurst != nil {
			dst.Session.InboundBurst = *s.InboundBurst
		}
	}
	if c := src.CORS; c != nil && c.AllowedOrigins != nil {
		dst.CORS.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	}
	if r := src.RateLimit; r != nil {
		if r.Enabled != nil {
			dst.RateLimit.Enabled = *r.Enabled
		}
		if r.RequestsPerMinute != nil {
			dst.RateLimit.RequestsPerMinute = *r.RequestsPerMinute
		}
	}
	if t := src.Tracing; t != nil {
		if t.Enabled != nil {
			dst.Tracing.Enabled = *t.Enabled
		}
		str(t.Exporter, &dst.Tracing.Exporter)
		str(t.Endpoint, &dst.Tracing.Endpoint)
		if t.SamplingRate != nil {
			dst.Tracing.SamplingRate = *t.SamplingRate
		}
	}
	return errors.Join(errs...)
}

// mergeEnv applies SIMGW_* variables. REDIS_URL and PORT are honoured as
// fallbacks so existing engine deployments keep working.
func mergeEnv(cfg *AppConfig, e env) {
	cfg.LogLevel = e.String(cfg.LogLevel, "SIMGW_LOG_LEVEL", "LOG_LEVEL")
	cfg.LogService = e.String(cfg.LogService, "SIMGW_LOG_SERVICE")

	cfg.API.ListenAddr = e.String(cfg.API.ListenAddr, "SIMGW_LISTEN")
	if _, _, ok := e.raw("SIMGW_LISTEN"); !ok {
		if port := e.String("", "PORT"); port != "" {
			cfg.API.ListenAddr = ":" + port
		}
	}

	cfg.Metrics.Enabled = e.Bool(cfg.Metrics.Enabled, "SIMGW_METRICS_ENABLED")
	cfg.Metrics.ListenAddr = e.String(cfg.Metrics.ListenAddr, "SIMGW_METRICS_LISTEN")

	cfg.Server.ReadTimeout = e.Duration(cfg.Server.ReadTimeout, "SIMGW_SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = e.Duration(cfg.Server.WriteTimeout, "SIMGW_SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = e.Duration(cfg.Server.IdleTimeout, "SIMGW_SERVER_IDLE_TIMEOUT")
	cfg.Server.MaxHeaderBytes = e.Int(cfg.Server.MaxHeaderBytes, "SIMGW_SERVER_MAX_HEADER_BYTES")
	cfg.Server.ShutdownTimeout = e.Duration(cfg.Server.ShutdownTimeout, "SIMGW_SHUTDOWN_TIMEOUT")

	cfg.Bus.Driver = e.String(cfg.Bus.Driver, "SIMGW_BUS_DRIVER")
	cfg.Bus.URL = e.String(cfg.Bus.URL, "SIMGW_REDIS_URL", "REDIS_URL")
	cfg.Bus.PublishTimeout = e.Duration(cfg.Bus.PublishTimeout, "SIMGW_PUBLISH_TIMEOUT")
	cfg.Bus.BreakerThreshold = e.Int(cfg.Bus.BreakerThreshold, "SIMGW_BREAKER_THRESHOLD")
	cfg.Bus.BreakerReset = e.Duration(cfg.Bus.BreakerReset, "SIMGW_BREAKER_RESET")
	ch := &cfg.Bus.Channels
	ch.State = e.String(ch.State, "SIMGW_CHANNEL_STATE")
	ch.Module = e.String(ch.Module, "SIMGW_CHANNEL_MODULE")
	ch.BusFleet = e.String(ch.BusFleet, "SIMGW_CHANNEL_BUS_FLEET")
	ch.Station = e.String(ch.Station, "SIMGW_CHANNEL_STATION")
	ch.Metrics = e.String(ch.Metrics, "SIMGW_CHANNEL_METRICS")
	ch.Control = e.String(ch.Control, "SIMGW_CHANNEL_CONTROL")

	s := &cfg.Session
	s.QueueSize = e.Int(s.QueueSize, "SIMGW_SESSION_QUEUE_SIZE")
	s.WriteTimeout = e.Duration(s.WriteTimeout, "SIMGW_SESSION_WRITE_TIMEOUT")
	s.PingInterval = e.Duration(s.PingInterval, "SIMGW_SESSION_PING_INTERVAL")
	s.PongTimeout = e.Duration(s.PongTimeout, "SIMGW_SESSION_PONG_TIMEOUT")
	s.MaxMessageBytes = e.Int64(s.MaxMessageBytes, "SIMGW_SESSION_MAX_MESSAGE_BYTES")
	s.InboundRate = e.Float(s.InboundRate, "SIMGW_SESSION_INBOUND_RATE")
	s.InboundBurst = e.Int(s.InboundBurst, "SIMGW_SESSION_INBOUND_BURST")

	cfg.CORS.AllowedOrigins = e.StringSlice(cfg.CORS.AllowedOrigins, "SIMGW_CORS_ORIGINS")

	cfg.RateLimit.Enabled = e.Bool(cfg.RateLimit.Enabled, "SIMGW_RATELIMIT_ENABLED")
	cfg.RateLimit.RequestsPerMinute = e.Int(cfg.RateLimit.RequestsPerMinute, "SIMGW_RATELIMIT_RPM")

	cfg.Tracing.Enabled = e.Bool(cfg.Tracing.Enabled, "SIMGW_TRACING_ENABLED")
	cfg.Tracing.Exporter = e.String(cfg.Tracing.Exporter, "SIMGW_TRACING_EXPORTER")
	cfg.Tracing.Endpoint = e.String(cfg.Tracing.Endpoint, "SIMGW_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.Tracing.SamplingRate = e.Float(cfg.Tracing.SamplingRate, "SIMGW_TRACING_SAMPLING_RATE")
}
