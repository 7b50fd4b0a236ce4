// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/ManuGH/simgw/internal/sim"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is required")

// commandResponse echoes the submitted command.
type commandResponse struct {
	Success bool `json:"success"`
	sim.Command
}

type scenarioRequest struct {
	Scenario string `json:"scenario"`
}

type scenarioInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Commands    []sim.Command `json:"commands"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// submit validates cmd and hands it to the publisher. A publish failure is
// logged and counted by the publisher but not reported to the client.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmd sim.Command) {
	if err := cmd.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := s.deps.Publisher.Publish(requestContext(r), cmd); err != nil {
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "command.accepted_unpublished").
			Str(xglog.FieldAction, cmd.Action).
			Msg("command accepted but not handed to bus")
	}
	writeJSON(w, http.StatusOK, commandResponse{Success: true, Command: cmd})
}

// handleAction returns a handler for an endpoint bound to one action. Any
// action field in the body is ignored.
func (s *Server) handleAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd sim.Command
		if err := decodeBody(w, r, &cmd); err != nil {
			writeBadRequest(w, err)
			return
		}
		cmd.Action = action
		s.submit(w, r, cmd)
	}
}

// handleControl accepts {action, value} for any known action.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var cmd sim.Command
	if err := decodeBody(w, r, &cmd); err != nil {
		writeBadRequest(w, err)
		return
	}
	s.submit(w, r, cmd)
}

// handleScenario runs a preset. An unknown name is a failed result, not an
// HTTP error.
func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Orchestrator.Run(requestContext(r), req.Scenario))
}

func (s *Server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	presets := s.deps.Orchestrator.Presets()
	out := make([]scenarioInfo, 0, len(presets))
	for _, p := range presets {
		out = append(out, scenarioInfo{Name: p.Name, Description: p.Description, Commands: p.Commands()})
	}
	writeJSON(w, http.StatusOK, out)
}
