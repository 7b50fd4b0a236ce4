// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ingest consumes simulation updates from the bus.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/simgw/internal/bus"
	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/rs/zerolog"
)

// ErrNotStarted is returned by Run before Start has succeeded.
var ErrNotStarted = errors.New("subscriber not started")

// CacheWriter stores decoded snapshots.
type CacheWriter interface {
	Set(snap sim.Snapshot)
}

// Broadcaster fans events out to sessions. Broadcast must not block on
// slow consumers.
type Broadcaster interface {
	Broadcast(ev sim.Event)
}

// Options tunes the subscriber.
type Options struct {
	// RetryMin and RetryMax bound the delay between re-subscription attempts
	// after the subscription ends while the gateway is still running.
	RetryMin time.Duration
	RetryMax time.Duration
	// Now is the clock used for receive timestamps.
	Now func() time.Time
}

// Subscriber owns the single subscription to every inbound channel. For each
// message it decodes the payload, stores the snapshot, then broadcasts the
// event, all on one goroutine so per-topic order is the bus order.
type Subscriber struct {
	bus      bus.Bus
	channels sim.Channels
	cache    CacheWriter
	out      Broadcaster
	opts     Options
	logger   zerolog.Logger

	mu  sync.Mutex
	sub bus.Subscription

	ready       atomic.Bool
	lastMessage atomic.Int64
}

// New creates a subscriber. Call Start before Run.
func New(b bus.Bus, channels sim.Channels, c CacheWriter, out Broadcaster, opts Options) *Subscriber {
	if opts.RetryMin <= 0 {
		opts.RetryMin = 100 * time.Millisecond
	}
	if opts.RetryMax < opts.RetryMin {
		opts.RetryMax = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Subscriber{
		bus:      b,
		channels: channels,
		cache:    c,
		out:      out,
		opts:     opts,
		logger:   xglog.WithComponent("ingest"),
	}
}

// Start subscribes to every inbound channel and returns once the bus has
// confirmed the subscription.
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.bus.Subscribe(ctx, s.channels.Inbound()...)
	if err != nil {
		return fmt.Errorf("subscribe inbound channels: %w", err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	s.ready.Store(true)

	s.logger.Info().
		Str(xglog.FieldEvent, "ingest.subscribed").
		Strs("channels", s.channels.Inbound()).
		Msg("inbound subscription established")
	return nil
}

// Run dispatches messages until ctx is cancelled. If the subscription ends
// while ctx is live, it re-subscribes with a growing delay. Missed messages
// are not replayed.
func (s *Subscriber) Run(ctx context.Context) error {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub == nil {
		return ErrNotStarted
	}
	defer func() { _ = s.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if ok {
				s.handle(msg)
				continue
			}
		}

		s.ready.Store(false)
		s.logger.Warn().
			Str(xglog.FieldEvent, "ingest.subscription_lost").
			Msg("inbound subscription ended, re-subscribing")

		var err error
		if sub, err = s.resubscribe(ctx); err != nil {
			return nil // ctx cancelled while retrying
		}
	}
}

func (s *Subscriber) resubscribe(ctx context.Context) (bus.Subscription, error) {
	delay := s.opts.RetryMin
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		err := s.Start(ctx)
		if err == nil {
			metrics.IncBusResubscribe()
			s.mu.Lock()
			sub := s.sub
			s.mu.Unlock()
			return sub, nil
		}
		s.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "ingest.resubscribe_failed").
			Dur("retry_in", delay).
			Msg("re-subscription failed")

		delay *= 2
		if delay > s.opts.RetryMax {
			delay = s.opts.RetryMax
		}
	}
}

func (s *Subscriber) handle(msg bus.Message) {
	topic, ok := s.channels.Topic(msg.Channel)
	if !ok || !topic.Inbound() {
		s.logger.Debug().
			Str(xglog.FieldEvent, "ingest.unknown_channel").
			Str(xglog.FieldChannel, msg.Channel).
			Msg("ignoring message on unexpected channel")
		return
	}

	now := s.opts.Now()
	s.lastMessage.Store(now.UnixNano())

	snap, err := sim.Decode(topic, msg.Payload, now)
	if err != nil {
		metrics.IncBusDecodeError(string(topic))
		s.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "ingest.decode_failed").
			Str(xglog.FieldTopic, string(topic)).
			Int("bytes", len(msg.Payload)).
			Msg("dropping malformed bus message")
		return
	}

	s.cache.Set(snap)
	metrics.IncBusMessage(string(topic))
	s.out.Broadcast(snap.Event())
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	s.ready.Store(false)
	if sub == nil {
		return nil
	}
	return sub.Close()
}

// Ready reports whether the inbound subscription is established.
func (s *Subscriber) Ready() bool {
	return s.ready.Load()
}

// LastMessageAt returns when the last inbound message arrived, zero if none has.
func (s *Subscriber) LastMessageAt() time.Time {
	n := s.lastMessage.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
