// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hub

import (
	"errors"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Register after Close.
var ErrClosed = errors.New("broadcaster closed")

// ReplayFunc returns the frames a new session receives before live events.
type ReplayFunc func() [][]byte

// Broadcaster holds the live-session set.
type Broadcaster struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	closed   bool

	logger zerolog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		sessions: make(map[*Session]struct{}),
		logger:   xglog.WithComponent("hub"),
	}
}

// Register enqueues the replay frames and adds s to the set. replay runs
// under the set lock, so any event broadcast after the snapshot was read is
// also delivered live and every replay frame precedes live traffic.
func (b *Broadcaster) Register(s *Session, replay ReplayFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	if replay != nil {
		for i, frame := range replay() {
			if err := s.enqueue(frame); err != nil {
				return fmt.Errorf("replay frame %d: %w", i, err)
			}
		}
	}
	b.sessions[s] = struct{}{}
	metrics.SessionAdded()
	return nil
}

// Remove drops s from the set and closes it. It reports whether s was a
// member; calling it again is a no-op.
func (b *Broadcaster) Remove(s *Session, reason string) bool {
	b.mu.Lock()
	_, ok := b.sessions[s]
	delete(b.sessions, s)
	b.mu.Unlock()

	s.close()
	if ok {
		metrics.SessionRemoved(reason)
		b.logger.Debug().
			Str(xglog.FieldEvent, "session.removed").
			Str(xglog.FieldSessionID, s.ID()).
			Str("reason", reason).
			Msg("session removed")
	}
	return ok
}

// Broadcast encodes ev once and enqueues the bytes to every session. A
// session that cannot accept the frame is removed; the rest still receive it.
func (b *Broadcaster) Broadcast(ev sim.Event) {
	start := time.Now()
	frame, err := ev.Encode()
	if err != nil {
		b.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "broadcast.encode_failed").
			Str(xglog.FieldTopic, string(ev.Topic)).
			Msg("failed to encode event")
		return
	}

	b.mu.RLock()
	targets := make([]*Session, 0, len(b.sessions))
	for s := range b.sessions {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.enqueue(frame); err != nil {
			reason := metrics.RemovalSlowConsumer
			if errors.Is(err, ErrSessionClosed) {
				reason = metrics.RemovalClientClosed
			}
			if b.Remove(s, reason) && reason == metrics.RemovalSlowConsumer {
				b.logger.Warn().
					Str(xglog.FieldEvent, "session.slow_consumer").
					Str(xglog.FieldSessionID, s.ID()).
					Str(xglog.FieldTopic, string(ev.Topic)).
					Msg("dropping slow consumer")
			}
		}
	}
	metrics.ObserveBroadcast(time.Since(start))
}

// Len returns the number of registered sessions.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// Close removes and closes every session. Later registrations fail.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	all := make([]*Session, 0, len(b.sessions))
	for s := range b.sessions {
		all = append(all, s)
	}
	b.sessions = make(map[*Session]struct{})
	b.mu.Unlock()

	for _, s := range all {
		s.close()
		metrics.SessionRemoved(metrics.RemovalShutdown)
	}
	if len(all) > 0 {
		b.logger.Info().
			Str(xglog.FieldEvent, "hub.closed").
			Int("sessions", len(all)).
			Msg("closed all sessions")
	}
}
