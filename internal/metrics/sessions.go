// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session removal reasons.
const (
	RemovalSlowConsumer = "slow_consumer"
	RemovalWriteError   = "write_error"
	RemovalClientClosed = "client_closed"
	RemovalShutdown     = "shutdown"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simgw_sessions_active",
		Help: "Number of WebSocket sessions currently registered for fan-out",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simgw_sessions_total",
		Help: "Total number of WebSocket sessions accepted",
	})

	sessionRemovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simgw_session_removals_total",
		Help: "Total number of sessions removed from fan-out by reason",
	}, []string{"reason"})

	sessionInboundDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simgw_session_inbound_dropped_total",
		Help: "Total number of client messages dropped by the per-session rate limit",
	})

	broadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "simgw_broadcast_duration_seconds",
		Help:    "Time spent enqueuing one event to every registered session",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
	})
)

// SessionAdded records a newly registered session.
func SessionAdded() {
	sessionsTotal.Inc()
	sessionsActive.Inc()
}

// SessionRemoved records a session leaving the fan-out set.
func SessionRemoved(reason string) {
	sessionsActive.Dec()
	sessionRemovalsTotal.WithLabelValues(orUnknown(reason)).Inc()
}

// IncSessionInboundDropped records a rate-limited client message.
func IncSessionInboundDropped() {
	sessionInboundDroppedTotal.Inc()
}

// ObserveBroadcast records the duration of one fan-out pass.
func ObserveBroadcast(d time.Duration) {
	broadcastDuration.Observe(d.Seconds())
}
