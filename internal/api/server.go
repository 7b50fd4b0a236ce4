// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api implements the HTTP control plane of the gateway: cache reads,
// control writes, scenarios, health probes and the WebSocket endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/simgw/internal/api/middleware"
	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/config"
	"github.com/ManuGH/simgw/internal/control"
	"github.com/ManuGH/simgw/internal/health"
	"github.com/ManuGH/simgw/internal/resilience"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/go-chi/chi/v5"
)

// ErrMissingDependency is returned by New when a required dependency is nil.
var ErrMissingDependency = errors.New("missing api dependency")

// SessionCounter reports the number of live push sessions.
type SessionCounter interface {
	Len() int
}

// SubscriptionStatus reports the inbound bus subscription.
type SubscriptionStatus interface {
	Ready() bool
	LastMessageAt() time.Time
}

// BreakerReporter exposes the publish circuit breaker state.
type BreakerReporter interface {
	BreakerState() resilience.State
}

// Deps are the collaborators the API server reads from and writes to.
type Deps struct {
	Cache        cache.Reader
	Sessions     SessionCounter
	WebSocket    http.Handler
	Publisher    control.Publisher
	Orchestrator *control.Orchestrator
	Health       *health.Manager

	// Optional status sources for /api/gateway/status.
	Subscription SubscriptionStatus
	Breaker      BreakerReporter
}

// Validate reports the first missing required dependency.
func (d Deps) Validate() error {
	switch {
	case d.Cache == nil:
		return fmt.Errorf("%w: cache", ErrMissingDependency)
	case d.Sessions == nil:
		return fmt.Errorf("%w: sessions", ErrMissingDependency)
	case d.WebSocket == nil:
		return fmt.Errorf("%w: websocket handler", ErrMissingDependency)
	case d.Publisher == nil:
		return fmt.Errorf("%w: publisher", ErrMissingDependency)
	case d.Orchestrator == nil:
		return fmt.Errorf("%w: orchestrator", ErrMissingDependency)
	case d.Health == nil:
		return fmt.Errorf("%w: health manager", ErrMissingDependency)
	}
	return nil
}

// Server is the control-plane HTTP server.
type Server struct {
	cfg       config.AppConfig
	deps      Deps
	contract  *contract
	startTime time.Time

	handlerOnce sync.Once
	handler     http.Handler
}

// New creates the API server.
func New(cfg config.AppConfig, deps Deps) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	c, err := newContract(context.Background())
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		deps:      deps,
		contract:  c,
		startTime: time.Now(),
	}, nil
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

func (s *Server) newRouter() chi.Router {
	tracing := ""
	if s.cfg.Tracing.Enabled {
		tracing = s.cfg.LogService
	}
	return middleware.NewRouter(middleware.StackConfig{
		EnableCORS:     true,
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,

		EnableSecurityHeaders: true,

		EnableMetrics:  true,
		TracingService: tracing,
		EnableLogging:  true,

		EnableRateLimit:   s.cfg.RateLimit.Enabled,
		RequestsPerMinute: s.cfg.RateLimit.RequestsPerMinute,
	})
}

// route binds one documented operation to its handler. operation is the
// operationId of the API document in exported form.
type route struct {
	method    string
	pattern   string
	operation string
	handler   http.HandlerFunc
}

func (s *Server) apiRoutes() []route {
	return []route{
		// Probes
		{http.MethodGet, "/health", "GetHealth", s.handleHealth},
		{http.MethodGet, "/healthz", "GetLiveness", s.deps.Health.ServeHealth},
		{http.MethodGet, "/readyz", "GetReadiness", s.deps.Health.ServeReady},

		// Reads
		{http.MethodGet, "/api/openapi.json", "GetOpenapiDocument", s.handleOpenAPI},
		{http.MethodGet, "/api/simulation", "GetSimulation", s.handleGetSimulation},
		{http.MethodGet, "/api/modules", "ListModules", s.handleListModules},
		{http.MethodGet, "/api/modules/{id}", "GetModule", s.handleGetModule},
		{http.MethodGet, "/api/fleet", "ListFleet", s.handleListFleet},
		{http.MethodGet, "/api/fleet/{id}", "GetBus", s.handleGetBus},
		{http.MethodGet, "/api/stations", "ListStations", s.handleListStations},
		{http.MethodGet, "/api/stations/{id}", "GetStation", s.handleGetStation},
		{http.MethodGet, "/api/metrics", "GetMetrics", s.handleGetMetrics},
		{http.MethodGet, "/api/gateway/status", "GetGatewayStatus", s.handleGatewayStatus},

		// Writes
		{http.MethodPost, "/api/simulation/control", "PostControl", s.handleControl},
		{http.MethodPost, "/api/simulation/inject-fault", "PostInjectFault", s.handleAction(sim.ActionInjectFault)},
		{http.MethodPost, "/api/simulation/set-module-power", "PostSetModulePower", s.handleAction(sim.ActionSetModulePower)},
		{http.MethodPost, "/api/simulation/distribute-rack-power", "PostDistributeRackPower", s.handleAction(sim.ActionDistributeRackPower)},
		{http.MethodPost, "/api/simulation/queue-bus-swap", "PostQueueBusSwap", s.handleAction(sim.ActionQueueBusForSwap)},
		{http.MethodPost, "/api/simulation/time-scale", "PostTimeScale", s.handleAction(sim.ActionSetTimeScale)},
		{http.MethodPost, "/api/simulation/trigger-v2g", "PostTriggerV2g", s.handleAction(sim.ActionTriggerV2G)},
		{http.MethodPost, "/api/simulation/scenario", "PostScenario", s.handleScenario},
		{http.MethodGet, "/api/simulation/scenarios", "ListScenarios", s.handleListScenarios},
	}
}

func (s *Server) routes() http.Handler {
	r := s.newRouter()
	r.Use(s.contract.validateRequests)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	for _, rt := range s.apiRoutes() {
		r.Method(rt.method, rt.pattern, rt.handler)
	}

	// Push transport
	r.Get("/ws/simulation", s.deps.WebSocket.ServeHTTP)

	return r
}

// requestContext detaches publishing from client disconnects: a command the
// client sent is published even if the client goes away mid-request.
func requestContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
