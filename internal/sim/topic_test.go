// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultChannels(t *testing.T) {
	c := DefaultChannels()

	want := []string{"sim:bus", "sim:metrics", "sim:module", "sim:state", "sim:station"}
	if diff := cmp.Diff(want, c.Inbound()); diff != "" {
		t.Errorf("Inbound() mismatch (-want +got):\n%s", diff)
	}
	if got := c.Control(); got != "sim:control" {
		t.Errorf("Control() = %q, want sim:control", got)
	}
	if got, ok := c.Topic("sim:bus"); !ok || got != TopicBusFleet {
		t.Errorf("Topic(sim:bus) = %q, %v", got, ok)
	}
	if _, ok := c.Topic("sim:robot"); ok {
		t.Error("Topic(sim:robot) should be unknown")
	}
}

func TestNewChannels_Errors(t *testing.T) {
	full := map[Topic]string{
		TopicState: "s", TopicModule: "m", TopicBusFleet: "b",
		TopicStation: "st", TopicMetrics: "me", TopicControl: "c",
	}

	missing := map[Topic]string{}
	for k, v := range full {
		missing[k] = v
	}
	delete(missing, TopicMetrics)
	if _, err := NewChannels(missing); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("missing topic: err = %v", err)
	}

	dup := map[Topic]string{}
	for k, v := range full {
		dup[k] = v
	}
	dup[TopicControl] = "s"
	if _, err := NewChannels(dup); err == nil {
		t.Error("duplicate channel: expected error")
	}
}

func TestInboundTopics_PrimaryFirst(t *testing.T) {
	topics := InboundTopics()
	if topics[0] != PrimaryTopic {
		t.Fatalf("first inbound topic = %q, want %q", topics[0], PrimaryTopic)
	}
	for _, tp := range topics {
		if !tp.Inbound() {
			t.Errorf("%q should be inbound", tp)
		}
	}
	if TopicControl.Inbound() {
		t.Error("control must not be inbound")
	}
}
