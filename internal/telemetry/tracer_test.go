// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service", ExporterType: "grpc"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error on noop shutdown, got: %v", err)
	}
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "test-service", ExporterType: "invalid"})
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	expectedMsg := "unsupported exporter type: invalid (supported: grpc, http)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestNewProvider_HTTPExporterShutdown(t *testing.T) {
	// The exporter connects lazily, so construction succeeds without a collector.
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "http",
		Endpoint:     "127.0.0.1:1",
		SamplingRate: 0,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	t.Cleanup(func() { _, _ = NewProvider(context.Background(), Config{}) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nothing was sampled, so there is nothing to flush.
	_ = provider.Shutdown(ctx)
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: sdktrace.AlwaysSample().Description()},
		{rate: 0.0, want: sdktrace.NeverSample().Description()},
		{rate: 0.5, want: sdktrace.TraceIDRatioBased(0.5).Description()},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestNilProviderShutdown(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider shutdown: %v", err)
	}
}

func TestCommandAttributes(t *testing.T) {
	attrs := CommandAttributes("sim:control", "injectFault", "mod-042")
	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, CommandActionKey, "injectFault")
	verifyAttribute(t, attrs, CommandTargetKey, "mod-042")

	if got := CommandAttributes("sim:control", "start", ""); len(got) != 2 {
		t.Errorf("Expected target to be omitted, got %d attributes", len(got))
	}
}

func TestScenarioAttributes(t *testing.T) {
	attrs := ScenarioAttributes("cascade", 5)
	verifyAttribute(t, attrs, ScenarioNameKey, "cascade")
	for _, a := range attrs {
		if string(a.Key) == ScenarioCommandsKey && a.Value.AsInt64() != 5 {
			t.Errorf("Expected %s=5, got %d", ScenarioCommandsKey, a.Value.AsInt64())
		}
	}
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if a.Value.AsString() != want {
				t.Errorf("Expected %s=%q, got %q", key, want, a.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
