// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/simgw/internal/bus"
	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/metrics"
	"github.com/ManuGH/simgw/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type collector struct {
	mu     sync.Mutex
	events []sim.Event
}

func (c *collector) Broadcast(ev sim.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) Events() []sim.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sim.Event(nil), c.events...)
}

// recordingBus hands out memory subscriptions and remembers the latest one.
type recordingBus struct {
	*bus.MemoryBus
	mu   sync.Mutex
	subs []bus.Subscription
}

func (b *recordingBus) Subscribe(ctx context.Context, channels ...string) (bus.Subscription, error) {
	sub, err := b.MemoryBus.Subscribe(ctx, channels...)
	if err == nil {
		b.mu.Lock()
		b.subs = append(b.subs, sub)
		b.mu.Unlock()
	}
	return sub, err
}

func (b *recordingBus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *recordingBus) Latest() bus.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[len(b.subs)-1]
}

type harness struct {
	bus    *recordingBus
	cache  *cache.TopicCache
	out    *collector
	sub    *Subscriber
	cancel context.CancelFunc
	done   chan error
}

func startHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		bus:   &recordingBus{MemoryBus: bus.NewMemoryBus()},
		cache: cache.New(),
		out:   &collector{},
		done:  make(chan error, 1),
	}
	h.sub = New(h.bus, sim.DefaultChannels(), h.cache, h.out, Options{
		RetryMin: 5 * time.Millisecond,
		RetryMax: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	require.NoError(t, h.sub.Start(ctx))
	go func() { h.done <- h.sub.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-h.done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("subscriber did not stop")
		}
		_ = h.bus.Close()
	})
	return h
}

func (h *harness) publish(t *testing.T, topic sim.Topic, payload string) {
	t.Helper()
	channel := sim.DefaultChannels().Channel(topic)
	require.NoError(t, h.bus.Publish(context.Background(), channel, []byte(payload)))
}

func TestSubscriberLastGoodSnapshotWins(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	h := startHarness(t)
	require.True(t, h.sub.Ready())
	require.True(t, h.sub.LastMessageAt().IsZero())

	before := metrics.GetBusDecodeErrors(string(sim.TopicState))

	h.publish(t, sim.TopicState, `{"running":true,"paused":false,"tickCount":1}`)
	h.publish(t, sim.TopicState, `{"running":true,"paused":false,"tickCount":2}`)
	h.publish(t, sim.TopicState, `{not json`)
	h.publish(t, sim.TopicState, `[1,2,3]`)

	require.Eventually(t, func() bool {
		return metrics.GetBusDecodeErrors(string(sim.TopicState))-before == 2
	}, time.Second, 5*time.Millisecond)

	snap, ok := h.cache.Get(sim.TopicState)
	require.True(t, ok)
	assert.JSONEq(t, `{"running":true,"paused":false,"tickCount":2}`, string(snap.Data))
	assert.Equal(t, 2, h.out.Len(), "malformed messages are never broadcast")
	assert.False(t, h.sub.LastMessageAt().IsZero())
}

func TestSubscriberBroadcastsInBusOrder(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	h := startHarness(t)

	h.publish(t, sim.TopicModule, `[{"id":"mod-001","status":"active"}]`)
	h.publish(t, sim.TopicMetrics, `{"totalPower":1}`)
	h.publish(t, sim.TopicModule, `[{"id":"mod-002","status":"active"}]`)

	require.Eventually(t, func() bool { return h.out.Len() == 3 }, time.Second, 5*time.Millisecond)

	var got []sim.Topic
	for _, ev := range h.out.Events() {
		got = append(got, ev.Topic)
	}
	assert.Equal(t, []sim.Topic{sim.TopicModule, sim.TopicMetrics, sim.TopicModule}, got)

	snap, ok := h.cache.Get(sim.TopicModule)
	require.True(t, ok)
	_, ok = snap.Item("mod-002")
	assert.True(t, ok)
	_, ok = snap.Item("mod-001")
	assert.False(t, ok, "collections are replaced wholesale")
}

func TestSubscriberResubscribesWhenSubscriptionEnds(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	h := startHarness(t)
	require.Equal(t, 1, h.bus.Count())

	require.NoError(t, h.bus.Latest().Close())

	require.Eventually(t, func() bool {
		return h.bus.Count() == 2 && h.sub.Ready()
	}, time.Second, 5*time.Millisecond)

	h.publish(t, sim.TopicStation, `[{"id":"st-1"}]`)
	require.Eventually(t, func() bool { return h.out.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubscriberRunRequiresStart(t *testing.T) {
	s := New(bus.NewMemoryBus(), sim.DefaultChannels(), cache.New(), &collector{}, Options{})
	require.ErrorIs(t, s.Run(context.Background()), ErrNotStarted)
	require.NoError(t, s.Close())
}

func TestSubscriberStartFailsOnClosedBus(t *testing.T) {
	b := bus.NewMemoryBus()
	require.NoError(t, b.Close())

	s := New(b, sim.DefaultChannels(), cache.New(), &collector{}, Options{})
	err := s.Start(context.Background())
	require.ErrorIs(t, err, bus.ErrClosed)
	require.False(t, s.Ready())
}
