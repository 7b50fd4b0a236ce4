// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"time"
)

// Pinger is satisfied by bus clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BusChecker pings the message bus.
type BusChecker struct {
	bus     Pinger
	timeout time.Duration
}

// NewBusChecker creates a checker that fails when the bus does not answer
// within timeout.
func NewBusChecker(bus Pinger, timeout time.Duration) *BusChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &BusChecker{bus: bus, timeout: timeout}
}

func (c *BusChecker) Name() string {
	return "bus"
}

func (c *BusChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.bus.Ping(ctx); err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{Status: StatusHealthy}
}

// SubscriptionState is satisfied by the bus subscriber.
type SubscriptionState interface {
	Ready() bool
	LastMessageAt() time.Time
}

// SubscriptionChecker reports the inbound subscription. Silence from the
// engine is degraded, not unhealthy: the gateway still serves cached data.
type SubscriptionChecker struct {
	sub        SubscriptionState
	staleAfter time.Duration
	now        func() time.Time
}

// NewSubscriptionChecker creates a checker. staleAfter <= 0 disables the
// silence check.
func NewSubscriptionChecker(sub SubscriptionState, staleAfter time.Duration) *SubscriptionChecker {
	return &SubscriptionChecker{sub: sub, staleAfter: staleAfter, now: time.Now}
}

func (c *SubscriptionChecker) Name() string {
	return "subscription"
}

func (c *SubscriptionChecker) Check(_ context.Context) CheckResult {
	if !c.sub.Ready() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "inbound subscription not established",
		}
	}

	last := c.sub.LastMessageAt()
	if last.IsZero() {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "subscribed, no messages yet",
		}
	}
	if c.staleAfter > 0 && c.now().Sub(last) > c.staleAfter {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no messages since " + last.UTC().Format(time.RFC3339),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
