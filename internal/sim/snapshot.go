// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the envelope timestamp layout (ISO-8601, millisecond precision, UTC).
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Snapshot is the latest successfully decoded payload of an inbound topic.
// Snapshots are immutable once built; the cache replaces them wholesale.
type Snapshot struct {
	Topic      Topic
	Data       json.RawMessage
	Items      map[string]json.RawMessage // collection topics only, keyed by element id
	ReceivedAt time.Time
}

// Item returns the collection element with the given id.
func (s Snapshot) Item(id string) (json.RawMessage, bool) {
	raw, ok := s.Items[id]
	return raw, ok
}

// Event returns the live event this snapshot was decoded from.
func (s Snapshot) Event() Event {
	return Event{Topic: s.Topic, Payload: s.Data, ReceivedAt: s.ReceivedAt}
}

// Event is one decoded inbound bus message on its way to the broadcaster.
type Event struct {
	Topic      Topic
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Envelope is the wire shape pushed to WebSocket clients for both replayed
// snapshots and live events.
type Envelope struct {
	Type      Topic           `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Envelope wraps the event for the client wire.
func (e Event) Envelope() Envelope {
	return Envelope{
		Type:      e.Topic,
		Data:      e.Payload,
		Timestamp: e.ReceivedAt.UTC().Format(TimestampFormat),
	}
}

// Encode serializes the event's envelope. Broadcasters call it once per
// event and share the bytes across sessions.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e.Envelope())
}
