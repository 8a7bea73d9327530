// Package store persists per-profile wellness state (check-ins, session
// history, the cached affirmation) behind a small key/value port.
package store

import (
	"context"
	"sync"
)

// Keys
const (
	KeyCheckIns    = "checkins"
	KeySessions    = "mindfulness-sessions"
	KeyAffirmation = "affirmation"
)

// KV is the persistence port. Get returns nil, nil for a key never written.
// Writes replace the whole value; last write wins.
type KV interface {
	Get(ctx context.Context, profileID, key string) ([]byte, error)
	Put(ctx context.Context, profileID, key string, value []byte) error
	Ping(ctx context.Context) error
}

// MemoryKV keeps values in process memory. Used for development and tests.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryKV) Get(_ context.Context, profileID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[profileID][key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value.
func (m *MemoryKV) Put(_ context.Context, profileID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[profileID] == nil {
		m.data[profileID] = make(map[string][]byte)
	}
	m.data[profileID][key] = append([]byte(nil), value...)
	return nil
}

// Ping always succeeds.
func (m *MemoryKV) Ping(context.Context) error { return nil }

var _ KV = (*MemoryKV)(nil)
