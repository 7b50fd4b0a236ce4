// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hub

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/simgw/internal/cache"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Manager accepts WebSocket connections and turns them into sessions.
type Manager struct {
	cache    cache.Reader
	hub      *Broadcaster
	opts     SessionOptions
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	// mu orders wg.Add against Wait; no session starts once draining is set.
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// NewManager creates a session manager. allowedOrigins follows the CORS
// setting: "*" admits any origin; requests without an Origin header are
// always admitted.
func NewManager(c cache.Reader, b *Broadcaster, opts SessionOptions, allowedOrigins []string) *Manager {
	m := &Manager{
		cache:  c,
		hub:    b,
		opts:   opts.withDefaults(),
		logger: xglog.WithComponent("hub"),
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return m
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// ServeHTTP upgrades the request, replays cached snapshots and starts the
// session's writer and reader goroutines.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		m.logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "session.upgrade_failed").
			Str(xglog.FieldRemoteAddr, r.RemoteAddr).
			Msg("websocket upgrade failed")
		return
	}

	s := newSession(uuid.NewString(), conn, m.opts)
	if err := m.hub.Register(s, func() [][]byte { return ReplayFrames(m.cache) }); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.register_failed").Msg("rejecting session")
		s.close()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ""), time.Now().Add(m.opts.WriteTimeout))
		_ = conn.Close()
		return
	}

	if !m.track() {
		m.hub.Remove(s, metrics.RemovalShutdown)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(m.opts.WriteTimeout))
		_ = conn.Close()
		return
	}

	s.logger.Info().
		Str(xglog.FieldEvent, "session.opened").
		Str(xglog.FieldRemoteAddr, r.RemoteAddr).
		Msg("websocket client connected")

	go func() {
		defer m.wg.Done()
		s.writeLoop(m.hub)
	}()
	go func() {
		defer m.wg.Done()
		s.readLoop(m.hub)
		s.logger.Info().Str(xglog.FieldEvent, "session.closed").Msg("websocket client disconnected")
	}()
}

// track reserves the writer and reader goroutines of a new session. It
// fails once Wait has been called.
func (m *Manager) track() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draining {
		return false
	}
	m.wg.Add(2)
	return true
}

// Wait blocks until every session goroutine has exited. Sessions accepted
// after Wait starts are closed immediately. Call it after the broadcaster is
// closed.
func (m *Manager) Wait() {
	m.mu.Lock()
	m.draining = true
	m.mu.Unlock()
	m.wg.Wait()
}

// ReplayFrames encodes the snapshots a new session receives. Nothing is
// replayed until a state snapshot exists; then state comes first, followed
// by every other cached inbound topic in fixed order.
func ReplayFrames(c cache.Reader) [][]byte {
	snaps := c.Snapshots(sim.InboundTopics()...)
	if len(snaps) == 0 || snaps[0].Topic != sim.PrimaryTopic {
		return nil
	}
	frames := make([][]byte, 0, len(snaps))
	for _, snap := range snaps {
		frame, err := snap.Event().Encode()
		if err != nil {
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}
