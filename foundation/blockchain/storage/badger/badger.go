// Package badger implements the ability to read and write ledger records
// using a badger key-value store.
package badger

import (
	"errors"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/dgraph-io/badger/v4"
)

// Badger represents the storage implementation backed by badger. This
// implements the database.Storage interface.
type Badger struct {
	db *badger.DB
}

// New opens or creates the badger database in the specified directory.
func New(dbPath string) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, err
	}

	return &Badger{db: db}, nil
}

// Close releases the database files.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Get returns the value stored for the key.
func (b *Badger) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	return value, nil
}

// Put stores the value under the key.
func (b *Badger) Put(key []byte, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes the key.
func (b *Badger) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// Write applies the batch inside a single transaction.
func (b *Badger) Write(batch database.Batch) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, kv := range batch {
			if err := txn.Set(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
