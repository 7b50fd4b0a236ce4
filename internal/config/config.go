// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Bus drivers.
const (
	BusDriverRedis  = "redis"
	BusDriverMemory = "memory"
)

// AppConfig is the effective gateway configuration after merging defaults,
// the optional YAML file and the environment.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string

	API       APIConfig
	Metrics   MetricsConfig
	Server    ServerConfig
	Bus       BusConfig
	Session   SessionConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// APIConfig configures the public HTTP listener.
type APIConfig struct {
	ListenAddr string
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled    bool
	ListenAddr string
}

// BusConfig configures the pub/sub transport.
type BusConfig struct {
	Driver           string
	URL              string
	Channels         ChannelConfig
	PublishTimeout   time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// ChannelConfig maps gateway topics to bus channel names.
type ChannelConfig struct {
	State    string
	Module   string
	BusFleet string
	Station  string
	Metrics  string
	Control  string
}

// SessionConfig bounds per-client WebSocket resources.
type SessionConfig struct {
	QueueSize       int
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	PongTimeout     time.Duration
	MaxMessageBytes int64
	InboundRate     float64
	InboundBurst    int
}

// CORSConfig lists origins allowed to call the API from a browser.
// A single "*" allows any origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig configures per-IP HTTP rate limiting.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// Defaults returns the built-in configuration. Channel names follow the
// simulation engine's defaults.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "simgw",
		API: APIConfig{
			ListenAddr: ":8000",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Server: DefaultServerConfig(),
		Bus: BusConfig{
			Driver: BusDriverRedis,
			URL:    "redis://localhost:6379",
			Channels: ChannelConfig{
				State:    "sim:state",
				Module:   "sim:module",
				BusFleet: "sim:bus",
				Station:  "sim:station",
				Metrics:  "sim:metrics",
				Control:  "sim:control",
			},
			PublishTimeout:   2 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     10 * time.Second,
		},
		Session: SessionConfig{
			QueueSize:       256,
			WriteTimeout:    10 * time.Second,
			PingInterval:    30 * time.Second,
			PongTimeout:     60 * time.Second,
			MaxMessageBytes: 64 << 10,
			InboundRate:     10,
			InboundBurst:    20,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 600,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
