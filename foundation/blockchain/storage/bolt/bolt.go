// Package bolt implements the ability to read and write ledger records using
// a bbolt single file database.
package bolt

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	bolt "go.etcd.io/bbolt"
)

// bucket holds every key written by this package.
var bucket = []byte("blockcache")

// Bolt represents the storage implementation backed by bbolt. This
// implements the database.Storage interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the bbolt database file at the specified path.
func New(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Get returns a copy of the value stored for the key. Values returned by
// bbolt are only valid for the life of the transaction.
func (b *Bolt) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return database.ErrNotFound
		}

		value = append([]byte(nil), v...)
		return nil
	})

	return value, err
}

// Put stores the value under the key.
func (b *Bolt) Put(key []byte, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
}

// Delete removes the key. Deleting a missing key is not an error.
func (b *Bolt) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
}

// Write applies the batch inside a single transaction.
func (b *Bolt) Write(batch database.Batch) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		for _, kv := range batch {
			if err := bkt.Put(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
