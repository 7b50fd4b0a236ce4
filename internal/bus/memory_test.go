// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "a", "b")
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "a", []byte("1")))
	require.NoError(t, b.Publish(context.Background(), "b", []byte("2")))
	require.NoError(t, b.Publish(context.Background(), "c", []byte("ignored")))
	require.NoError(t, b.Publish(context.Background(), "a", []byte("3")))

	var got []string
	for i := 0; i < 3; i++ {
		m := <-sub.C()
		got = append(got, m.Channel+":"+string(m.Payload))
	}
	require.Equal(t, []string{"a:1", "b:2", "a:3"}, got)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.C()
	require.False(t, ok, "channel must be closed after Close")
	require.Zero(t, b.Subscribers("a"))
}

func TestMemoryBusPublishContextTimeout(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", []byte("msg")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "topic", []byte("blocked"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryBusPublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // exercising the nil guard
	err := b.Publish(nil, "topic", []byte("msg"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "context is nil")
}

func TestMemoryBusCloseUnblocksPublisher(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", []byte("x")))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- b.Publish(context.Background(), "topic", []byte("blocked")) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Close())

	select {
	case err := <-errCh:
		require.NoError(t, err, "delivery to a closed subscriber is skipped")
	case <-time.After(time.Second):
		t.Fatal("publish did not unblock on Close")
	}
	require.ErrorIs(t, b.Ping(context.Background()), ErrClosed)
	require.ErrorIs(t, b.Publish(context.Background(), "topic", nil), ErrClosed)
}
