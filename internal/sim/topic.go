// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"fmt"
	"sort"
)

// Topic names one of the fixed bus channels the gateway knows about.
type Topic string

const (
	TopicState    Topic = "state"
	TopicModule   Topic = "module"
	TopicBusFleet Topic = "bus-fleet"
	TopicStation  Topic = "station"
	TopicMetrics  Topic = "metrics"

	// TopicControl is the single outbound topic.
	TopicControl Topic = "control"
)

// PrimaryTopic gates snapshot replay to new sessions.
const PrimaryTopic = TopicState

var inboundTopics = []Topic{TopicState, TopicModule, TopicBusFleet, TopicStation, TopicMetrics}

// InboundTopics returns the inbound topics in replay order, primary first.
func InboundTopics() []Topic {
	return append([]Topic(nil), inboundTopics...)
}

// Inbound reports whether t is one of the subscribed topics.
func (t Topic) Inbound() bool {
	for _, in := range inboundTopics {
		if t == in {
			return true
		}
	}
	return false
}

func (t Topic) String() string { return string(t) }

// Channels maps topics to bus channel names in both directions.
type Channels struct {
	byTopic   map[Topic]string
	byChannel map[string]Topic
}

// NewChannels builds the mapping. Every inbound topic and the control topic
// must be present with a distinct, non-empty channel name.
func NewChannels(m map[Topic]string) (Channels, error) {
	c := Channels{
		byTopic:   make(map[Topic]string, len(m)),
		byChannel: make(map[string]Topic, len(m)),
	}
	for _, t := range append(InboundTopics(), TopicControl) {
		name, ok := m[t]
		if !ok || name == "" {
			return Channels{}, fmt.Errorf("%w: no channel for topic %q", ErrUnknownTopic, t)
		}
		if other, dup := c.byChannel[name]; dup {
			return Channels{}, fmt.Errorf("channel %q assigned to both %q and %q", name, other, t)
		}
		c.byTopic[t] = name
		c.byChannel[name] = t
	}
	return c, nil
}

// DefaultChannels returns the simulation engine's channel names.
func DefaultChannels() Channels {
	c, _ := NewChannels(map[Topic]string{
		TopicState:    "sim:state",
		TopicModule:   "sim:module",
		TopicBusFleet: "sim:bus",
		TopicStation:  "sim:station",
		TopicMetrics:  "sim:metrics",
		TopicControl:  "sim:control",
	})
	return c
}

// Channel returns the bus channel for t.
func (c Channels) Channel(t Topic) string {
	return c.byTopic[t]
}

// Topic resolves a bus channel name.
func (c Channels) Topic(channel string) (Topic, bool) {
	t, ok := c.byChannel[channel]
	return t, ok
}

// Inbound returns the inbound channel names, sorted for stable subscriptions.
func (c Channels) Inbound() []string {
	out := make([]string, 0, len(inboundTopics))
	for _, t := range inboundTopics {
		out = append(out, c.byTopic[t])
	}
	sort.Strings(out)
	return out
}

// Control returns the outbound control channel.
func (c Channels) Control() string {
	return c.byTopic[TopicControl]
}
