package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, wrap("get", namespace, key, ErrClosed)
	}
	v, ok := m.data[namespace][key]
	if !ok {
		return nil, wrap("get", namespace, key, ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, namespace, key string, value []byte) error {
	if !json.Valid(value) {
		return wrap("set", namespace, key, ErrInvalidValue)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return wrap("set", namespace, key, ErrClosed)
	}
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

// SetMany implements Store.
func (m *MemoryStore) SetMany(_ context.Context, namespace string, values map[string][]byte) error {
	if err := validateAll(namespace, values); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return wrap("set", namespace, "*", ErrClosed)
	}
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = append([]byte(nil), v...)
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
