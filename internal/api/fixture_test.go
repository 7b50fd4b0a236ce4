// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/simgw/internal/bus"
	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/config"
	"github.com/ManuGH/simgw/internal/control"
	"github.com/ManuGH/simgw/internal/health"
	"github.com/ManuGH/simgw/internal/hub"
	"github.com/ManuGH/simgw/internal/ingest"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway wires the real components over an in-memory bus.
type gateway struct {
	bus       *bus.MemoryBus
	channels  sim.Channels
	cache     *cache.TopicCache
	hub       *hub.Broadcaster
	sessions  *hub.Manager
	ingest    *ingest.Subscriber
	publisher *control.BusPublisher
	server    *Server
	http      *httptest.Server
	outbound  bus.Subscription
}

func newGateway(t *testing.T) *gateway {
	t.Helper()

	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.RateLimit.Enabled = false

	g := &gateway{
		bus:      bus.NewMemoryBus(),
		channels: sim.DefaultChannels(),
		cache:    cache.New(),
		hub:      hub.NewBroadcaster(),
	}
	g.sessions = hub.NewManager(g.cache, g.hub, hub.SessionOptions{QueueSize: 64}, cfg.CORS.AllowedOrigins)
	g.ingest = ingest.New(g.bus, g.channels, g.cache, g.hub, ingest.Options{})
	g.publisher = control.NewBusPublisher(g.bus, g.channels.Control(), control.PublisherOptions{Timeout: time.Second})

	var err error
	g.outbound, err = g.bus.Subscribe(context.Background(), g.channels.Control())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, g.ingest.Start(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.ingest.Run(ctx)
	}()

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBusChecker(g.bus, time.Second))
	hm.RegisterChecker(health.NewSubscriptionChecker(g.ingest, 0))

	g.server, err = New(cfg, Deps{
		Cache:        g.cache,
		Sessions:     g.hub,
		WebSocket:    g.sessions,
		Publisher:    g.publisher,
		Orchestrator: control.NewOrchestrator(g.publisher, control.DefaultPresets()),
		Health:       hm,
		Subscription: g.ingest,
		Breaker:      g.publisher,
	})
	require.NoError(t, err)
	g.http = httptest.NewServer(g.server.Handler())

	t.Cleanup(func() {
		g.hub.Close()
		g.sessions.Wait()
		g.http.Close()
		http.DefaultClient.CloseIdleConnections()
		cancel()
		<-done
		_ = g.bus.Close()
	})
	return g
}

// publishRaw puts a raw payload on the inbound channel of topic.
func (g *gateway) publishRaw(t *testing.T, topic sim.Topic, payload string) {
	t.Helper()
	require.NoError(t, g.bus.Publish(context.Background(), g.channels.Channel(topic), []byte(payload)))
}

// seed publishes payload and waits until the cache holds it.
func (g *gateway) seed(t *testing.T, topic sim.Topic, payload string) {
	t.Helper()
	g.publishRaw(t, topic, payload)
	require.Eventually(t, func() bool {
		snap, ok := g.cache.Get(topic)
		return ok && bytes.Equal(snap.Data, []byte(payload))
	}, 2*time.Second, 5*time.Millisecond)
}

func (g *gateway) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(g.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (g *gateway) post(t *testing.T, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(g.http.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func (g *gateway) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.http.URL, "http") + "/ws/simulation"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (g *gateway) waitSessions(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return g.hub.Len() == n }, 2*time.Second, 5*time.Millisecond)
}

// nextCommand returns the next outbound control payload.
func (g *gateway) nextCommand(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-g.outbound.C():
		return string(msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no control command published")
		return ""
	}
}

// assertNoCommand fails if another control payload arrives shortly.
func (g *gateway) assertNoCommand(t *testing.T) {
	t.Helper()
	select {
	case msg := <-g.outbound.C():
		t.Fatalf("unexpected control command %s", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func readEnvelope(t *testing.T, conn *websocket.Conn) sim.Envelope {
	t.Helper()
	var env sim.Envelope
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &env))
	_, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC3339")
	return env
}
