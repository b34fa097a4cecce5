// Package database handles the lower level support for the ledger records
// the cache serves: the record model, the storage key conventions, the
// difficulty target codec and the key-value storage contract.
package database

import (
	"errors"
	"strconv"
)

// ErrNotFound is returned by a Storage implementation when the requested key
// has never been written or has been deleted.
var ErrNotFound = errors.New("key not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for persisting ledger records. Implementations
// must be safe for concurrent use.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	Write(batch Batch) error
	Close() error
}

// =============================================================================

// KV represents a single key and value pair to be written.
type KV struct {
	Key   []byte
	Value []byte
}

// Batch represents a set of key and value pairs that are written as a single
// unit. Engines that support transactions apply the whole batch or nothing.
type Batch []KV

// Add appends a new key and value pair to the batch.
func (b *Batch) Add(key []byte, value []byte) {
	*b = append(*b, KV{Key: key, Value: value})
}

// =============================================================================

// Key prefixes used to lay out records in storage.
const (
	recordPrefix     = "block"
	difficultyPrefix = "blockDiff"
)

// LengthKey holds the number of durably stored records.
var LengthKey = []byte("chain:length")

// RecordKey returns the key holding the serialized record for the height.
func RecordKey(height uint64) []byte {
	return []byte(recordPrefix + strconv.FormatUint(height, 10))
}

// DifficultyKey returns the key holding the difficulty target entry for the
// height. The entry at height+1 is the target the record at height was
// produced against, the entry at height is the target of its parent.
func DifficultyKey(height uint64) []byte {
	return []byte(difficultyPrefix + strconv.FormatUint(height, 10))
}
