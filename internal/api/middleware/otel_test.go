// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldTrace(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"/healthz", "/readyz", "/health", "/metrics", "/ws/simulation"} {
		assert.False(t, shouldTrace(httptest.NewRequest(http.MethodGet, p, nil)), p)
	}
	for _, p := range []string{"/api/simulation", "/api/modules/mod-001", "/api/simulation/scenario"} {
		assert.True(t, shouldTrace(httptest.NewRequest(http.MethodGet, p, nil)), p)
	}
}

func TestSpanNameFormatter(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
	assert.Equal(t, "HTTP GET /api/fleet", spanNameFormatter("HTTP GET", req))

	req = httptest.NewRequest(http.MethodGet, "/api/fleet?token=secret", nil)
	assert.Equal(t, "HTTP GET /api/fleet?", spanNameFormatter("HTTP GET", req))
}
