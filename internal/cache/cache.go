// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cache holds the latest snapshot per inbound topic.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/ManuGH/simgw/internal/sim"
)

// Reader is the read side of the topic cache, used by sessions and the read API.
type Reader interface {
	// Get returns the snapshot for topic, or false if none has arrived yet.
	Get(topic sim.Topic) (sim.Snapshot, bool)
	// Snapshots returns the present snapshots for topics, in the order requested.
	Snapshots(topics ...sim.Topic) []sim.Snapshot
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64 `json:"hits"`        // Get calls that found a snapshot
	Misses      int64 `json:"misses"`      // Get calls before the topic's first message
	Sets        int64 `json:"sets"`        // snapshots stored
	CurrentSize int   `json:"currentSize"` // topics with a snapshot
}

// TopicCache stores exactly one snapshot per topic, replaced wholesale on Set.
// It has a single writer (the bus subscriber) and many readers. There is no
// eviction; absent topics are reported as absent, never as zero values.
type TopicCache struct {
	mu      sync.RWMutex
	entries map[sim.Topic]sim.Snapshot

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// New creates an empty cache.
func New() *TopicCache {
	return &TopicCache{entries: make(map[sim.Topic]sim.Snapshot)}
}

// Get returns the snapshot for topic.
func (c *TopicCache) Get(topic sim.Topic) (sim.Snapshot, bool) {
	c.mu.RLock()
	snap, ok := c.entries[topic]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return snap, ok
}

// Set overwrites the snapshot for snap.Topic unconditionally.
func (c *TopicCache) Set(snap sim.Snapshot) {
	c.mu.Lock()
	c.entries[snap.Topic] = snap
	c.mu.Unlock()
	c.sets.Add(1)
}

// Snapshots returns the present snapshots for topics in the requested order,
// read under one lock so they form a consistent view.
func (c *TopicCache) Snapshots(topics ...sim.Topic) []sim.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]sim.Snapshot, 0, len(topics))
	for _, t := range topics {
		if snap, ok := c.entries[t]; ok {
			out = append(out, snap)
		}
	}
	return out
}

// Stats returns cache statistics.
func (c *TopicCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		CurrentSize: size,
	}
}
