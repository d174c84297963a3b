package storage

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"
)

// MemoryStore is an in-process content-addressed store keyed by CIDv1 raw sha2-256.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores data and returns its locator. Storing the same bytes twice is a no-op.
func (m *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id.String()]; !ok {
		m.objects[id.String()] = append([]byte(nil), data...)
	}
	return FormatLocator(id), nil
}

// Get returns the bytes behind locator.
func (m *MemoryStore) Get(ctx context.Context, locator string) ([]byte, error) {
	id, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	return m.Fetch(ctx, id)
}

// Fetch returns the bytes of id.
func (m *MemoryStore) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Has reports whether id is stored
func (m *MemoryStore) Has(id cid.Cid) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id.String()]
	return ok
}
