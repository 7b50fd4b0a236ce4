// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/simgw/internal/cache"
	"github.com/ManuGH/simgw/internal/sim"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type topicStatus struct {
	Cached         bool   `json:"cached"`
	LastReceivedAt string `json:"lastReceivedAt,omitempty"`
}

type subscriptionStatus struct {
	Ready         bool   `json:"ready"`
	LastMessageAt string `json:"lastMessageAt,omitempty"`
}

type gatewayStatus struct {
	Version       string                    `json:"version,omitempty"`
	UptimeSeconds int64                     `json:"uptimeSeconds"`
	Sessions      int                       `json:"sessions"`
	Cache         cache.Stats               `json:"cache"`
	Topics        map[sim.Topic]topicStatus `json:"topics"`
	Subscription  *subscriptionStatus       `json:"subscription,omitempty"`
	Publisher     string                    `json:"publisherBreaker,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sim.TimestampFormat)
}

// handleHealth is the plain liveness answer kept for existing clients.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: formatTime(time.Now()),
	})
}

func (s *Server) handleGatewayStatus(w http.ResponseWriter, _ *http.Request) {
	resp := gatewayStatus{
		Version:       s.cfg.Version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Sessions:      s.deps.Sessions.Len(),
		Topics:        make(map[sim.Topic]topicStatus),
	}

	for _, topic := range sim.InboundTopics() {
		resp.Topics[topic] = topicStatus{}
	}
	for _, snap := range s.deps.Cache.Snapshots(sim.InboundTopics()...) {
		resp.Topics[snap.Topic] = topicStatus{Cached: true, LastReceivedAt: formatTime(snap.ReceivedAt)}
	}
	resp.Cache = s.deps.Cache.Stats()

	if sub := s.deps.Subscription; sub != nil {
		resp.Subscription = &subscriptionStatus{
			Ready:         sub.Ready(),
			LastMessageAt: formatTime(sub.LastMessageAt()),
		}
	}
	if b := s.deps.Breaker; b != nil {
		resp.Publisher = string(b.BreakerState())
	}

	writeJSON(w, http.StatusOK, resp)
}
