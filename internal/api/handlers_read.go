// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/simgw/internal/sim"
	"github.com/go-chi/chi/v5"
)

var (
	defaultSimulation = mustJSON(sim.DefaultSimulationState())
	defaultMetrics    = mustJSON(sim.SimulationMetrics{})
	emptyCollection   = []byte("[]")
)

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// writeSnapshot writes the cached payload of topic or fallback if none has arrived.
func (s *Server) writeSnapshot(w http.ResponseWriter, topic sim.Topic, fallback []byte) {
	if snap, ok := s.deps.Cache.Get(topic); ok {
		writeRawJSON(w, http.StatusOK, snap.Data)
		return
	}
	writeRawJSON(w, http.StatusOK, fallback)
}

// writeItem writes one element of a collection snapshot, or 404 with notFound.
func (s *Server) writeItem(w http.ResponseWriter, r *http.Request, topic sim.Topic, notFound string) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if snap, ok := s.deps.Cache.Get(topic); ok {
		if raw, ok := snap.Item(id); ok {
			writeRawJSON(w, http.StatusOK, raw)
			return
		}
	}
	writeError(w, http.StatusNotFound, notFound)
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w, sim.TopicState, defaultSimulation)
}

func (s *Server) handleListModules(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w, sim.TopicModule, emptyCollection)
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	s.writeItem(w, r, sim.TopicModule, "Module not found")
}

func (s *Server) handleListFleet(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w, sim.TopicBusFleet, emptyCollection)
}

func (s *Server) handleGetBus(w http.ResponseWriter, r *http.Request) {
	s.writeItem(w, r, sim.TopicBusFleet, "Bus not found")
}

func (s *Server) handleListStations(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w, sim.TopicStation, emptyCollection)
}

func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	s.writeItem(w, r, sim.TopicStation, "Station not found")
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w, sim.TopicMetrics, defaultMetrics)
}
