package memory

import (
	"bytes"
	"sync"

	"github.com/geanlabs/pqlean/storage"
)

// Store is an in-memory implementation of storage.KeyValue.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ storage.KeyValue = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (m *Store) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Store) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[string(key)]
	return ok, nil
}

func (m *Store) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[string(key)] = bytes.Clone(value)
	return nil
}

func (m *Store) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, string(key))
	return nil
}

func (m *Store) WriteBatch(entries []storage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.values[string(e.Key)] = bytes.Clone(e.Value)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Close is a no-op; the data lives as long as the Store.
func (m *Store) Close() error { return nil }
