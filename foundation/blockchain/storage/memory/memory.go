// Package memory implements the ability to read and write ledger records to
// memory using a map.
package memory

import (
	"sync"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
)

// Memory represents the storage implementation for reading and storing
// records in memory. This implements the database.Storage interface.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{
		data: make(map[string][]byte),
	}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Get returns a copy of the value stored for the key.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, exists := m.data[string(key)]
	if !exists {
		return nil, database.ErrNotFound
	}

	return append([]byte(nil), v...), nil
}

// Put stores a copy of the value under the key.
func (m *Memory) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[string(key)] = append([]byte(nil), value...)

	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))

	return nil
}

// Write applies the batch while holding the lock so readers never observe
// a partial batch.
func (m *Memory) Write(batch database.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, kv := range batch {
		m.data[string(kv.Key)] = append([]byte(nil), kv.Value...)
	}

	return nil
}

// Len returns the number of keys held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
