// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type wsFixture struct {
	cache *cache.TopicCache
	hub   *Broadcaster
	mgr   *Manager
	srv   *httptest.Server
}

func newWSFixture(t *testing.T, origins []string) *wsFixture {
	t.Helper()
	f := &wsFixture{cache: cache.New(), hub: NewBroadcaster()}
	f.mgr = NewManager(f.cache, f.hub, SessionOptions{QueueSize: 32}, origins)
	f.srv = httptest.NewServer(f.mgr)
	t.Cleanup(func() {
		f.hub.Close()
		f.mgr.Wait()
		f.srv.Close()
	})
	return f
}

func (f *wsFixture) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url(), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *wsFixture) set(t *testing.T, topic sim.Topic, payload string) {
	t.Helper()
	snap, err := sim.Decode(topic, []byte(payload), time.Now())
	require.NoError(t, err)
	f.cache.Set(snap)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) sim.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env sim.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func waitSessions(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestManagerReplaysStateFirst(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, []string{"*"})

	f.set(t, sim.TopicMetrics, `{"faultsDetected":3}`)
	f.set(t, sim.TopicModule, `[{"id":"mod-001"}]`)
	f.set(t, sim.TopicState, `{"running":true,"paused":false}`)

	conn := f.dial(t)
	waitSessions(t, f.hub, 1)

	var got []sim.Topic
	for i := 0; i < 3; i++ {
		got = append(got, readEnvelope(t, conn).Type)
	}
	assert.Equal(t, []sim.Topic{sim.TopicState, sim.TopicModule, sim.TopicMetrics}, got)

	f.hub.Broadcast(event(sim.TopicStation, `[{"id":"st-1"}]`))
	assert.Equal(t, sim.TopicStation, readEnvelope(t, conn).Type)
}

func TestManagerReplaysNothingWithoutState(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, nil)

	f.set(t, sim.TopicModule, `[{"id":"mod-001"}]`)

	conn := f.dial(t)
	waitSessions(t, f.hub, 1)

	// The first frame must be live traffic, not a replayed module snapshot.
	f.hub.Broadcast(event(sim.TopicMetrics, `{"faultsDetected":1}`))
	assert.Equal(t, sim.TopicMetrics, readEnvelope(t, conn).Type)
}

func TestManagerIgnoresClientMessages(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, []string{"*"})
	conn := f.dial(t)
	waitSessions(t, f.hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","topics":["state"]}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	f.hub.Broadcast(event(sim.TopicState, `{"running":true}`))
	assert.Equal(t, sim.TopicState, readEnvelope(t, conn).Type)
	assert.Equal(t, 1, f.hub.Len(), "malformed messages never disconnect")
}

func TestManagerReadLimitIsTransportBound(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := &wsFixture{cache: cache.New(), hub: NewBroadcaster()}
	f.mgr = NewManager(f.cache, f.hub, SessionOptions{QueueSize: 32, MaxMessageBytes: 1024}, nil)
	f.srv = httptest.NewServer(f.mgr)
	t.Cleanup(func() {
		f.hub.Close()
		f.mgr.Wait()
		f.srv.Close()
	})
	conn := f.dial(t)
	waitSessions(t, f.hub, 1)

	topics := `"` + strings.Repeat("state", 150) + `"`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","topics":[`+topics+`]}`)))
	f.hub.Broadcast(event(sim.TopicState, `{"running":true}`))
	assert.Equal(t, sim.TopicState, readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 4096))))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "got %v", err)
	waitSessions(t, f.hub, 0)
}

func TestManagerRemovesSessionOnClientClose(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, []string{"*"})
	conn := f.dial(t)
	waitSessions(t, f.hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = conn.Close()

	waitSessions(t, f.hub, 0)
}

func TestManagerCloseDisconnectsClients(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, []string{"*"})
	conn := f.dial(t)
	waitSessions(t, f.hub, 1)

	f.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestManagerWaitRefusesNewSessions(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, nil)

	f.mgr.Wait()

	conn := f.dial(t)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, f.hub.Len())
}

func TestManagerWaitDuringAccepts(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, nil)

	var clients sync.WaitGroup
	for i := 0; i < 16; i++ {
		clients.Add(1)
		go func() {
			defer clients.Done()
			conn, resp, err := websocket.DefaultDialer.Dial(f.url(), nil)
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			if err == nil {
				_ = conn.Close()
			}
		}()
	}

	f.hub.Close()
	f.mgr.Wait()
	clients.Wait()

	assert.Equal(t, 0, f.hub.Len())
}

func TestManagerRejectsForeignOrigin(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	f := newWSFixture(t, []string{"https://dashboard.example"})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(f.url(), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	header.Set("Origin", "https://dashboard.example")
	conn, resp, err := websocket.DefaultDialer.Dial(f.url(), header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	_ = conn.Close()
}

func TestReplayFramesGatedOnState(t *testing.T) {
	c := cache.New()
	assert.Empty(t, ReplayFrames(c))

	snap, err := sim.Decode(sim.TopicMetrics, []byte(`{}`), time.Now())
	require.NoError(t, err)
	c.Set(snap)
	assert.Empty(t, ReplayFrames(c))

	snap, err = sim.Decode(sim.TopicState, []byte(`{"running":false}`), time.Now())
	require.NoError(t, err)
	c.Set(snap)
	assert.Len(t, ReplayFrames(c), 2)
}
