// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/metrics"
)

const (
	memorySubscriberBuffer = 64
	dropLogEvery           = 100
)

var dropCount atomic.Uint64

// MemoryBus is an in-process pub/sub used by tests and local runs without
// Redis. Publish blocks while a subscriber's buffer is full, until ctx is done.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	closed bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub)}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

// Publish delivers payload to every current subscriber of channel.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*memSub(nil), b.subs[channel]...)
	b.mu.RUnlock()

	msg := Message{Channel: channel, Payload: append([]byte(nil), payload...)}
	for _, s := range subs {
		if err := s.deliver(ctx, msg); err != nil {
			if errors.Is(err, errSubClosed) {
				continue
			}
			reason := publishDropReason(err)
			metrics.IncBusLocalDrop(channel)
			count := dropCount.Add(1)
			if count%dropLogEvery == 1 {
				log.L().Warn().
					Str(log.FieldChannel, channel).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish")
			}
			return fmt.Errorf("publish channel %q: %w", channel, err)
		}
	}
	return nil
}

// Subscribe registers one subscriber for all channels.
func (b *MemoryBus) Subscribe(_ context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("subscribe: no channels")
	}
	s := &memSub{
		b:        b,
		channels: append([]string(nil), channels...),
		ch:       make(chan Message, memorySubscriberBuffer),
		done:     make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	for _, c := range channels {
		b.subs[c] = append(b.subs[c], s)
	}
	return s, nil
}

// Ping fails only after Close.
func (b *MemoryBus) Ping(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memSub
	seen := map[*memSub]bool{}
	for _, lst := range b.subs {
		for _, s := range lst {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
	}
	b.subs = make(map[string][]*memSub)
	b.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}
	return nil
}

// Subscribers returns the number of subscribers on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

var errSubClosed = errors.New("subscription closed")

type memSub struct {
	b        *MemoryBus
	channels []string
	ch       chan Message

	// done unblocks senders before ch is closed; mu orders close(ch) after
	// every in-flight deliver has returned.
	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
	closed   bool
}

func (s *memSub) deliver(ctx context.Context, msg Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSubClosed
	}
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return errSubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) Close() error {
	s.b.mu.Lock()
	for _, c := range s.channels {
		lst := s.b.subs[c]
		out := lst[:0]
		for _, other := range lst {
			if other != s {
				out = append(out, other)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, c)
		} else {
			s.b.subs[c] = out
		}
	}
	s.b.mu.Unlock()

	s.shutdown()
	return nil
}

func (s *memSub) shutdown() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

var _ Bus = (*MemoryBus)(nil)
