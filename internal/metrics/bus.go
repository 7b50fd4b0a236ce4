// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simgw_bus_messages_total",
		Help: "Total number of decoded inbound bus messages by topic",
	}, []string{"topic"})

	busDecodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simgw_bus_decode_errors_total",
		Help: "Total number of inbound bus messages dropped because they failed to decode",
	}, []string{"topic"})

	busResubscribesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simgw_bus_resubscribes_total",
		Help: "Total number of times the inbound subscription was re-established by the gateway",
	})

	busLocalDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simgw_bus_local_drops_total",
		Help: "Total number of in-memory bus messages dropped because a subscriber was full",
	}, []string{"channel"})
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// IncBusMessage records a decoded inbound message.
func IncBusMessage(topic string) {
	busMessagesTotal.WithLabelValues(orUnknown(topic)).Inc()
}

// IncBusDecodeError records an inbound message that failed to decode.
func IncBusDecodeError(topic string) {
	busDecodeErrorsTotal.WithLabelValues(orUnknown(topic)).Inc()
}

// IncBusResubscribe records a gateway-initiated re-subscription.
func IncBusResubscribe() {
	busResubscribesTotal.Inc()
}

// IncBusLocalDrop records a dropped message on the in-memory bus.
func IncBusLocalDrop(channel string) {
	busLocalDropsTotal.WithLabelValues(orUnknown(channel)).Inc()
}
