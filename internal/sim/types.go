// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import "time"

// SimulationState is the payload of the state topic.
type SimulationState struct {
	Running   bool      `json:"running"`
	Paused    bool      `json:"paused"`
	SimTime   time.Time `json:"simTime,omitempty"`
	RealTime  time.Time `json:"realTime,omitempty"`
	TimeScale float64   `json:"timeScale,omitempty"`
	TickCount int64     `json:"tickCount,omitempty"`

	ModuleCount  int `json:"moduleCount,omitempty"`
	RackCount    int `json:"rackCount,omitempty"`
	BusCount     int `json:"busCount,omitempty"`
	StationCount int `json:"stationCount,omitempty"`

	TotalPower     float64 `json:"totalPower,omitempty"`
	AvgEfficiency  float64 `json:"avgEfficiency,omitempty"`
	AvgBatterySOC  float64 `json:"avgBatterySoc,omitempty"`
	ActiveCharging int     `json:"activeCharging,omitempty"`
}

// DefaultSimulationState is served by the read API before the engine has
// published any state.
func DefaultSimulationState() map[string]bool {
	return map[string]bool{"running": false, "paused": true}
}

// Module is one power module in a rack.
type Module struct {
	ID           string  `json:"id"`
	RackID       string  `json:"rackId"`
	SlotIndex    int     `json:"slotIndex"`
	State        string  `json:"state"`
	PowerOut     float64 `json:"powerOut"`
	Voltage      float64 `json:"voltage"`
	Current      float64 `json:"current"`
	TempJunction float64 `json:"tempJunction"`
	TempHeatsink float64 `json:"tempHeatsink"`
	TempAmbient  float64 `json:"tempAmbient"`
	ESRRatio     float64 `json:"esrRatio"`
	RdsOnRatio   float64 `json:"rdsOnRatio"`
	Efficiency   float64 `json:"efficiency"`
	OperatingHrs float64 `json:"operatingHrs"`
	PowerCycles  int     `json:"powerCycles"`
	Health       float64 `json:"health"`
	RULHours     float64 `json:"rulHours"`
}

// Position is a GPS coordinate.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bus is one vehicle of the fleet.
type Bus struct {
	ID             string   `json:"id"`
	RouteID        string   `json:"routeId"`
	State          string   `json:"state"`
	BatterySOC     float64  `json:"batterySoc"`
	BatteryCapKWh  float64  `json:"batteryCapKwh"`
	BatteryVoltage float64  `json:"batteryVoltage"`
	Position       Position `json:"position"`
	Speed          float64  `json:"speed"`
	NextStationID  string   `json:"nextStationId"`
	ETAMinutes     float64  `json:"etaMinutes"`
}

// Station is a battery swap station.
type Station struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Position        Position `json:"position"`
	State           string   `json:"state"`
	RackCount       int      `json:"rackCount"`
	ModuleInventory int      `json:"moduleInventory"`
	BusQueue        []string `json:"busQueue"`
	CurrentBusID    string   `json:"currentBusId"`
}

// SimulationMetrics is the payload of the metrics topic. Its zero value is
// served by the read API before the engine has published metrics.
type SimulationMetrics struct {
	SimulatedHours  float64 `json:"simulatedHours"`
	RealTimeSeconds float64 `json:"realTimeSeconds"`

	SystemUptime    float64 `json:"systemUptime"`
	ModuleUptime    float64 `json:"moduleUptime"`
	FaultsDetected  int     `json:"faultsDetected"`
	FaultsRecovered int     `json:"faultsRecovered"`
	MTBFHours       float64 `json:"mtbfHours"`
	MTTRMinutes     float64 `json:"mttrMinutes"`

	AvgEfficiency  float64 `json:"avgEfficiency"`
	PeakEfficiency float64 `json:"peakEfficiency"`
	TotalEnergyKWh float64 `json:"totalEnergyKwh"`
	EnergyLossKWh  float64 `json:"energyLossKwh"`

	ModulesReplaced int     `json:"modulesReplaced"`
	DowntimeMinutes float64 `json:"downtimeMinutes"`
	DowntimeAvoided float64 `json:"downtimeAvoided"`
	CostSavingsUSD  float64 `json:"costSavingsUsd"`

	BusesCharged     int     `json:"busesCharged"`
	SwapsCompleted   int     `json:"swapsCompleted"`
	AvgChargeTimeMin float64 `json:"avgChargeTimeMin"`
	AvgSwapTimeSec   float64 `json:"avgSwapTimeSec"`
	FleetSOC         float64 `json:"fleetSoc"`

	V2GEventsCount int     `json:"v2gEventsCount"`
	V2GEnergyKWh   float64 `json:"v2gEnergyKwh"`
	V2GRevenueUSD  float64 `json:"v2gRevenueUsd"`
	GridFreqMin    float64 `json:"gridFreqMin"`
	GridFreqMax    float64 `json:"gridFreqMax"`

	LoadBalanceScore float64 `json:"loadBalanceScore"`
	ThermalBalance   float64 `json:"thermalBalance"`
	RedundancyLevel  float64 `json:"redundancyLevel"`
}
