// Package visitor maintains server-side visitor identity and first-touch
// attribution.
//
// The Store abstraction models one browser's storage context as a small
// key-value surface, so identity rules (stable visitor id, 30-minute session
// expiry, write-once attribution) can be exercised against an in-memory map
// in tests and Redis in production.
package visitor

import (
	"context"
	"strconv"
	"sync"
)

// Store is a per-visitor key-value context.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes unconditionally.
	Set(ctx context.Context, key, value string) error
	// SetNX writes only when the key is absent and reports whether it wrote.
	SetNX(ctx context.Context, key, value string) (bool, error)
	// Incr increments a counter key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}

// StoreProvider hands out the Store for one visitor's context.
type StoreProvider interface {
	For(visitorID string) Store
}

// MemoryStore is a map-backed Store for tests and single-process use.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.values[key], 10, 64)
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

// MemoryStores provides a MemoryStore per visitor, for deployments without
// Redis. State lives for the process lifetime only.
type MemoryStores struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{stores: make(map[string]*MemoryStore)}
}

func (m *MemoryStores) For(visitorID string) Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[visitorID]
	if !ok {
		s = NewMemoryStore()
		m.stores[visitorID] = s
	}
	return s
}
