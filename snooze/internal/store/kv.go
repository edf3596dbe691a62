// Package store holds the durable key/value backends behind the snooze
// engine and the date codec layered on top of them.
//
// A backend only knows strings. Dates turns it into the per-item snooze
// date store: a key exists iff the item is snoozed.
package store

import (
	"context"
	"sort"
	"sync"
)

// KV is a flat string key/value store. Remove on an absent key is a no-op.
// Single-key atomicity is all a backend guarantees.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
}

// Memory is a process-local KV. Used by tests and the "memory" backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) All(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

// Keys returns the sorted keys of a snapshot returned by All.
func Keys(all map[string]string) []string {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Batcher is implemented by backends that can write several keys atomically.
type Batcher interface {
	SetMany(ctx context.Context, entries map[string]string) error
}
