// Package store provides KV implementations for the wallet engine.
package store

import (
	"errors"
	"sync"
)

// =============================================================================
// MEMORY KV - In-memory implementation (for testing/dev)
// =============================================================================

// ErrQuotaExceeded simulates the persistence medium rejecting a write.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Memory is an in-memory KV namespace. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	data       map[string]string
	failWrites bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Seed pre-populates a key, bypassing write-failure injection. Tests use
// it to lay down legacy values before constructing an engine.
func (m *Memory) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// FailWrites toggles write-failure injection: while enabled, every Set
// returns ErrQuotaExceeded and stores nothing.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
