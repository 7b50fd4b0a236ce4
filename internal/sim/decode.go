// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Decode validates raw against the schema of topic and builds a Snapshot.
// The returned snapshot owns a copy of raw.
func Decode(topic Topic, raw []byte, receivedAt time.Time) (Snapshot, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %s: empty payload", ErrSchemaMismatch, topic)
	}
	data = append(json.RawMessage(nil), data...)

	snap := Snapshot{Topic: topic, Data: data, ReceivedAt: receivedAt}

	var err error
	switch topic {
	case TopicState:
		err = decodeObject[SimulationState](data)
	case TopicMetrics:
		err = decodeObject[SimulationMetrics](data)
	case TopicModule:
		snap.Items, err = decodeCollection(data, func(m Module) string { return m.ID })
	case TopicBusFleet:
		snap.Items, err = decodeCollection(data, func(b Bus) string { return b.ID })
	case TopicStation:
		snap.Items, err = decodeCollection(data, func(s Station) string { return s.ID })
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, topic, err)
	}
	return snap, nil
}

func decodeObject[T any](data []byte) error {
	if data[0] != '{' {
		return fmt.Errorf("expected JSON object")
	}
	var v T
	return json.Unmarshal(data, &v)
}

func decodeCollection[T any](data []byte, id func(T) string) (map[string]json.RawMessage, error) {
	if data[0] != '[' {
		return nil, fmt.Errorf("expected JSON array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, err
	}
	items := make(map[string]json.RawMessage, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("element %d: expected JSON object", i)
		}
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		key := id(v)
		if key == "" {
			return nil, fmt.Errorf("element %d: missing id", i)
		}
		// First occurrence wins for duplicate ids.
		if _, dup := items[key]; !dup {
			items[key] = elem
		}
	}
	return items, nil
}
