// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrSessionClosed is returned when enqueueing to a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrQueueFull is returned when a session's outbound queue has no room.
	ErrQueueFull = errors.New("session queue full")
)

// SessionOptions bounds per-session resources.
//
// MaxMessageBytes is a transport bound, not a message rule: the content of a
// client frame never ends a session, but a frame larger than the limit is
// refused by the WebSocket reader and the connection closes with 1009
// (message too big). The default sits far above any subscribe frame.
type SessionOptions struct {
	QueueSize       int
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	PongTimeout     time.Duration
	MaxMessageBytes int64
	InboundRate     float64
	InboundBurst    int
}

// DefaultSessionOptions returns the options used when none are configured.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		QueueSize:       256,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		PongTimeout:     60 * time.Second,
		MaxMessageBytes: 64 * 1024,
		InboundRate:     10,
		InboundBurst:    20,
	}
}

func (o SessionOptions) withDefaults() SessionOptions {
	d := DefaultSessionOptions()
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = d.PongTimeout
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = d.MaxMessageBytes
	}
	if o.InboundRate <= 0 {
		o.InboundRate = d.InboundRate
	}
	if o.InboundBurst <= 0 {
		o.InboundBurst = d.InboundBurst
	}
	return o
}

// Session is one connected client. Its queue is closed exactly once; after
// that every enqueue fails with ErrSessionClosed.
type Session struct {
	id   string
	conn *websocket.Conn
	opts SessionOptions

	send chan []byte
	done chan struct{}

	// mu orders close(send) after every in-flight enqueue.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	logger zerolog.Logger
}

func newSession(id string, conn *websocket.Conn, opts SessionOptions) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:     id,
		conn:   conn,
		opts:   opts,
		send:   make(chan []byte, opts.QueueSize),
		done:   make(chan struct{}),
		logger: xglog.WithComponent("hub").With().Str(xglog.FieldSessionID, id).Logger(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// enqueue never blocks.
func (s *Session) enqueue(frame []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()
	})
}

// writeLoop drains the queue onto the socket and sends pings. It closes the
// connection when the queue is closed or a write fails.
func (s *Session) writeLoop(b *Broadcaster) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug().Err(err).Str(xglog.FieldEvent, "session.write_failed").Msg("write failed")
				b.Remove(s, metrics.RemovalWriteError)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug().Err(err).Str(xglog.FieldEvent, "session.ping_failed").Msg("ping failed")
				b.Remove(s, metrics.RemovalWriteError)
				return
			}
		}
	}
}

// readLoop consumes client messages until the connection fails, then
// removes the session. Frames over MaxMessageBytes fail the read.
func (s *Session) readLoop(b *Broadcaster) {
	defer b.Remove(s, metrics.RemovalClientClosed)

	s.conn.SetReadLimit(s.opts.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	limiter := rate.NewLimiter(rate.Limit(s.opts.InboundRate), s.opts.InboundBurst)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debug().Err(err).Str(xglog.FieldEvent, "session.read_failed").Msg("read failed")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if !limiter.Allow() {
			metrics.IncSessionInboundDropped()
			continue
		}
		s.handleClientMessage(data)
	}
}

// clientMessage is the inbound frame shape. Only the type is inspected.
type clientMessage struct {
	Type string `json:"type"`
}

func (s *Session) handleClientMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.malformed_message").Msg("invalid client message")
		return
	}
	switch msg.Type {
	case "subscribe", "ping":
		s.logger.Debug().Str(xglog.FieldEvent, "session.client_message").Str("type", msg.Type).Msg("client message received")
	default:
		s.logger.Debug().Str(xglog.FieldEvent, "session.unknown_message").Str("type", msg.Type).Msg("ignoring client message")
	}
}
