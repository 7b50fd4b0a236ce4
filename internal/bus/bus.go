// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the pub/sub transport between the gateway and the
// simulation engine.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("bus closed")

// Message is one payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription delivers messages for a fixed channel list.
type Subscription interface {
	// C returns the message channel. It is closed when the subscription ends.
	C() <-chan Message
	// Close unsubscribes. It is safe to call more than once.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	// Publish hands payload to the transport. A nil error means the transport
	// accepted the message, not that anyone received it.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the subscription is confirmed by the transport.
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the transport's connections.
	Close() error
}
