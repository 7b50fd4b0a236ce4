// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func readCounter(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// GetSessionsActive returns the current value of the active sessions gauge (for testing).
func GetSessionsActive() float64 {
	var m dto.Metric
	if err := sessionsActive.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// GetSessionRemovals returns the removal counter for reason (for testing).
func GetSessionRemovals(reason string) float64 {
	return readCounter(sessionRemovalsTotal.WithLabelValues(reason))
}

// GetBusDecodeErrors returns the decode error counter for topic (for testing).
func GetBusDecodeErrors(topic string) float64 {
	return readCounter(busDecodeErrorsTotal.WithLabelValues(topic))
}

// GetCommands returns the command counter for action and result (for testing).
func GetCommands(action, result string) float64 {
	return readCounter(commandsTotal.WithLabelValues(action, result))
}

// GetSessionInboundDropped returns the inbound drop counter (for testing).
func GetSessionInboundDropped() float64 {
	return readCounter(sessionInboundDroppedTotal)
}
