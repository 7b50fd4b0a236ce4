// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// FileConfig is the YAML file schema. Pointer fields distinguish "unset"
// from an explicit zero value.
type FileConfig struct {
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	API       *APIFile       `yaml:"api,omitempty"`
	Metrics   *MetricsFile   `yaml:"metrics,omitempty"`
	Server    *ServerFile    `yaml:"server,omitempty"`
	Bus       *BusFile       `yaml:"bus,omitempty"`
	Session   *SessionFile   `yaml:"session,omitempty"`
	CORS      *CORSFile      `yaml:"cors,omitempty"`
	RateLimit *RateLimitFile `yaml:"rateLimit,omitempty"`
	Tracing   *TracingFile   `yaml:"tracing,omitempty"`
}

type APIFile struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type MetricsFile struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type ServerFile struct {
	ReadTimeout     string `yaml:"readTimeout,omitempty"`
	WriteTimeout    string `yaml:"writeTimeout,omitempty"`
	IdleTimeout     string `yaml:"idleTimeout,omitempty"`
	MaxHeaderBytes  *int   `yaml:"maxHeaderBytes,omitempty"`
	ShutdownTimeout string `yaml:"shutdownTimeout,omitempty"`
}

type BusFile struct {
	Driver           string        `yaml:"driver,omitempty"`
	URL              string        `yaml:"url,omitempty"`
	Channels         *ChannelsFile `yaml:"channels,omitempty"`
	PublishTimeout   string        `yaml:"publishTimeout,omitempty"`
	BreakerThreshold *int          `yaml:"breakerThreshold,omitempty"`
	BreakerReset     string        `yaml:"breakerReset,omitempty"`
}

type ChannelsFile struct {
	State    string `yaml:"state,omitempty"`
	Module   string `yaml:"module,omitempty"`
	BusFleet string `yaml:"busFleet,omitempty"`
	Station  string `yaml:"station,omitempty"`
	Metrics  string `yaml:"metrics,omitempty"`
	Control  string `yaml:"control,omitempty"`
}

type SessionFile struct {
	QueueSize       *int     `yaml:"queueSize,omitempty"`
	WriteTimeout    string   `yaml:"writeTimeout,omitempty"`
	PingInterval    string   `yaml:"pingInterval,omitempty"`
	PongTimeout     string   `yaml:"pongTimeout,omitempty"`
	MaxMessageBytes *int64   `yaml:"maxMessageBytes,omitempty"`
	InboundRate     *float64 `yaml:"inboundRate,omitempty"`
	InboundBurst    *int     `yaml:"inboundBurst,omitempty"`
}

type CORSFile struct {
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

type RateLimitFile struct {
	Enabled           *bool `yaml:"enabled,omitempty"`
	RequestsPerMinute *int  `yaml:"requestsPerMinute,omitempty"`
}

type TracingFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
