// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigure_ServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "simgw-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{Level: "info"}) })

	l := WithComponent("ingest")
	l.Info().Str(FieldEvent, "test.event").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	if entry["service"] != "simgw-test" {
		t.Errorf("service = %v, want simgw-test", entry["service"])
	}
	if entry["version"] != "v0.0.1" {
		t.Errorf("version = %v, want v0.0.1", entry["version"])
	}
	if entry["component"] != "ingest" {
		t.Errorf("component = %v, want ingest", entry["component"])
	}
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel(warn) error = %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) expected error")
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level changed on invalid input: %v", zerolog.GlobalLevel())
	}
}

func TestMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: "info"}) })

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/modules", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, `"event":"request.handled"`) {
		t.Fatalf("missing request.handled event in %q", out)
	}
	if !strings.Contains(out, `"status":418`) {
		t.Errorf("missing status in %q", out)
	}
	if !strings.Contains(out, `"path":"/api/modules"`) {
		t.Errorf("missing path in %q", out)
	}
}
