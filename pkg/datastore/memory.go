package datastore

import (
	"errors"
	"sync"
)

// ErrClosed is returned by a Memory store after Close.
var ErrClosed = errors.New("datastore: store closed")

// Memory is an in-memory KV for tests. It can be told to fail writes to
// exercise callers' error paths.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool

	// FailWrites makes Set and Delete return the given error when non-nil.
	FailWrites error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Close is a no-op beyond rejecting further calls.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
