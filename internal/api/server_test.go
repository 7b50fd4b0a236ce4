// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/config"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(config.Defaults(), Deps{Cache: cache.New()})
	require.ErrorIs(t, err, ErrMissingDependency)
}

func TestReadDefaultsBeforeFirstSnapshot(t *testing.T) {
	g := newGateway(t)

	tests := []struct {
		path string
		want string
	}{
		{path: "/api/simulation", want: `{"running":false,"paused":true}`},
		{path: "/api/modules", want: `[]`},
		{path: "/api/fleet", want: `[]`},
		{path: "/api/stations", want: `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := g.get(t, tt.path)
			assert.Equal(t, http.StatusOK, code)
			assert.JSONEq(t, tt.want, body)
		})
	}

	code, body := g.get(t, "/api/metrics")
	assert.Equal(t, http.StatusOK, code)
	var m sim.SimulationMetrics
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	assert.Empty(t, cmp.Diff(sim.SimulationMetrics{}, m))
}

func TestReadServesCachedSnapshots(t *testing.T) {
	g := newGateway(t)

	g.seed(t, sim.TopicState, `{"running":true,"paused":false,"tickCount":42}`)
	g.seed(t, sim.TopicModule, `[{"id":"mod-001","state":"active"},{"id":"mod-002","state":"fault"}]`)
	g.seed(t, sim.TopicBusFleet, `[{"id":"bus-01","batterySoc":0.7}]`)
	g.seed(t, sim.TopicStation, `[{"id":"st-01","name":"Central"}]`)
	g.seed(t, sim.TopicMetrics, `{"faultsDetected":3}`)

	tests := []struct {
		path string
		code int
		want string
	}{
		{"/api/simulation", http.StatusOK, `{"running":true,"paused":false,"tickCount":42}`},
		{"/api/modules/mod-002", http.StatusOK, `{"id":"mod-002","state":"fault"}`},
		{"/api/modules/mod-999", http.StatusNotFound, `{"error":"Module not found"}`},
		{"/api/fleet/bus-01", http.StatusOK, `{"id":"bus-01","batterySoc":0.7}`},
		{"/api/fleet/bus-99", http.StatusNotFound, `{"error":"Bus not found"}`},
		{"/api/stations/st-01", http.StatusOK, `{"id":"st-01","name":"Central"}`},
		{"/api/stations/st-99", http.StatusNotFound, `{"error":"Station not found"}`},
		{"/api/metrics", http.StatusOK, `{"faultsDetected":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := g.get(t, tt.path)
			assert.Equal(t, tt.code, code)
			assert.JSONEq(t, tt.want, body)
		})
	}
}

func TestGetByIDBeforeSnapshotIs404(t *testing.T) {
	g := newGateway(t)
	code, body := g.get(t, "/api/modules/mod-001")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"Module not found"}`, body)
}

func TestWriteEndpointsPublishAndEcho(t *testing.T) {
	g := newGateway(t)

	tests := []struct {
		name    string
		path    string
		body    string
		command string
	}{
		{
			name:    "control",
			path:    "/api/simulation/control",
			body:    `{"action":"pause"}`,
			command: `{"action":"pause"}`,
		},
		{
			name:    "control with value",
			path:    "/api/simulation/control",
			body:    `{"action":"setTimeScale","value":60}`,
			command: `{"action":"setTimeScale","value":60}`,
		},
		{
			name:    "inject fault",
			path:    "/api/simulation/inject-fault",
			body:    `{"moduleId":"mod-007","faultType":2,"severity":0.5}`,
			command: `{"action":"injectFault","moduleId":"mod-007","faultType":2,"severity":0.5}`,
		},
		{
			name:    "set module power",
			path:    "/api/simulation/set-module-power",
			body:    `{"moduleId":"mod-001","power":1200}`,
			command: `{"action":"setModulePower","moduleId":"mod-001","power":1200}`,
		},
		{
			name:    "distribute rack power",
			path:    "/api/simulation/distribute-rack-power",
			body:    `{"rackId":"rack-03","power":90000}`,
			command: `{"action":"distributeRackPower","rackId":"rack-03","power":90000}`,
		},
		{
			name:    "queue bus swap",
			path:    "/api/simulation/queue-bus-swap",
			body:    `{"busId":"bus-04","stationId":"st-02"}`,
			command: `{"action":"queueBusForSwap","busId":"bus-04","stationId":"st-02"}`,
		},
		{
			name:    "time scale ignores body action",
			path:    "/api/simulation/time-scale",
			body:    `{"action":"stop","value":5}`,
			command: `{"action":"setTimeScale","value":5}`,
		},
		{
			name:    "trigger v2g",
			path:    "/api/simulation/trigger-v2g",
			body:    `{"frequency":49.9}`,
			command: `{"action":"triggerV2G","frequency":49.9}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := g.post(t, tt.path, tt.body)
			require.Equal(t, http.StatusOK, code, body)

			var echoed map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &echoed))
			assert.Equal(t, true, echoed["success"])
			delete(echoed, "success")
			var want map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.command), &want))
			assert.Empty(t, cmp.Diff(want, echoed))

			assert.JSONEq(t, tt.command, g.nextCommand(t))
		})
	}
}

func TestWriteValidationFailuresAre400(t *testing.T) {
	g := newGateway(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty body", "/api/simulation/control", ""},
		{"malformed json", "/api/simulation/control", `{"action":`},
		{"unknown action", "/api/simulation/control", `{"action":"selfDestruct"}`},
		{"missing module", "/api/simulation/inject-fault", `{"faultType":1,"severity":0.5}`},
		{"severity out of range", "/api/simulation/inject-fault", `{"moduleId":"mod-1","severity":2}`},
		{"missing station", "/api/simulation/queue-bus-swap", `{"busId":"bus-1"}`},
		{"non-positive time scale", "/api/simulation/time-scale", `{"value":0}`},
		{"malformed scenario", "/api/simulation/scenario", `[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := g.post(t, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
	g.assertNoCommand(t)
}

func TestUnknownScenarioIsFailureNotHTTPError(t *testing.T) {
	g := newGateway(t)

	code, body := g.post(t, "/api/simulation/scenario", `{"scenario":"meteor-strike"}`)
	assert.Equal(t, http.StatusOK, code)

	var res struct {
		Success  bool   `json:"success"`
		Scenario string `json:"scenario"`
		Error    string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "meteor-strike", res.Scenario)
	assert.Contains(t, res.Error, "unknown scenario")
	g.assertNoCommand(t)
}

func TestCascadeScenarioPublishesInOrder(t *testing.T) {
	g := newGateway(t)

	code, _ := g.post(t, "/api/simulation/scenario", `{"scenario":"cascade"}`)
	require.Equal(t, http.StatusOK, code)

	for _, id := range []string{"mod-020", "mod-021", "mod-022", "mod-023", "mod-024"} {
		assert.JSONEq(t, `{"action":"injectFault","moduleId":"`+id+`","faultType":1,"severity":0.8}`, g.nextCommand(t))
	}
	g.assertNoCommand(t)
}

func TestListScenarios(t *testing.T) {
	g := newGateway(t)

	code, body := g.get(t, "/api/simulation/scenarios")
	require.Equal(t, http.StatusOK, code)

	var list []scenarioInfo
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	var names []string
	for _, s := range list {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"normal", "peak", "module-failure", "cascade", "v2g-response"}, names)
}

func TestPublishFailureIsNotSurfaced(t *testing.T) {
	g := newGateway(t)
	require.NoError(t, g.bus.Close())

	before := metrics.GetCommands(sim.ActionPause, metrics.ResultError)
	code, body := g.post(t, "/api/simulation/control", `{"action":"pause"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"success":true,"action":"pause"}`, body)
	assert.Equal(t, before+1, metrics.GetCommands(sim.ActionPause, metrics.ResultError))
}

func TestHealthEndpoints(t *testing.T) {
	g := newGateway(t)

	code, body := g.get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
	var h healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, "ok", h.Status)
	assert.NotEmpty(t, h.Timestamp)

	code, _ = g.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, code)

	code, body = g.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, code, body)

	require.NoError(t, g.bus.Close())
	code, _ = g.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGatewayStatus(t *testing.T) {
	g := newGateway(t)
	g.seed(t, sim.TopicState, `{"running":true}`)

	code, body := g.get(t, "/api/gateway/status")
	require.Equal(t, http.StatusOK, code)

	var st gatewayStatus
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, "test", st.Version)
	assert.Zero(t, st.Sessions)
	assert.True(t, st.Topics[sim.TopicState].Cached)
	assert.NotEmpty(t, st.Topics[sim.TopicState].LastReceivedAt)
	assert.False(t, st.Topics[sim.TopicMetrics].Cached)
	assert.Len(t, st.Topics, len(sim.InboundTopics()))
	require.NotNil(t, st.Subscription)
	assert.True(t, st.Subscription.Ready)
	assert.Equal(t, "closed", st.Publisher)
	assert.Equal(t, 1, st.Cache.CurrentSize)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	g := newGateway(t)
	code, body := g.get(t, "/api/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"Not found"}`, body)
}
