// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command and scenario results.
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultCircuitOpen = "circuit_open"
	ResultUnknown     = "unknown"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simgw_commands_total",
		Help: "Total number of control commands handed to the bus by action and result",
	}, []string{"action", "result"})

	scenariosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simgw_scenarios_total",
		Help: "Total number of scenario preset runs by scenario and result",
	}, []string{"scenario", "result"})
)

// IncCommand records one publish attempt.
func IncCommand(action, result string) {
	commandsTotal.WithLabelValues(orUnknown(action), result).Inc()
}

// IncScenario records one scenario run. Unknown preset names are collapsed
// into a single label value to keep cardinality bounded.
func IncScenario(scenario, result string) {
	if result == ResultUnknown {
		scenario = "unknown"
	}
	scenariosTotal.WithLabelValues(orUnknown(scenario), result).Inc()
}
