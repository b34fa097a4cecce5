// Package disk implements the ability to read and write ledger records to
// disk, one file per key.
package disk

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
)

// Disk represents the storage implementation for reading and storing values
// in their own separate files on disk. This implements the database.Storage
// interface.
type Disk struct {
	dbPath string
	mu     sync.Mutex
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each value and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Get reads the file holding the value for the key.
func (d *Disk) Get(key []byte) ([]byte, error) {
	data, err := os.ReadFile(d.getPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

// Put writes the value to a temporary file and renames it over the key's
// file so readers see the old or the new value, never a partial one.
func (d *Disk) Put(key []byte, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.put(key, value)
}

// Delete removes the file for the key. Deleting a missing key is not an error.
func (d *Disk) Delete(key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.getPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// Write applies every entry in the batch in order. A failure part way leaves
// the entries before it written, so callers order a batch with the entries
// that make the others visible last.
func (d *Disk) Write(batch database.Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, kv := range batch {
		if err := d.put(kv.Key, kv.Value); err != nil {
			return fmt.Errorf("write %s: %w", kv.Key, err)
		}
	}

	return nil
}

// put performs the atomic replace of a single file.
func (d *Disk) put(key []byte, value []byte) error {
	file := d.getPath(key)
	tmp := file + ".tmp"

	if err := os.WriteFile(tmp, value, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, file)
}

// getPath forms the path to the file for the specified key. Keys are hex
// encoded so any byte sequence maps to a valid file name.
func (d *Disk) getPath(key []byte) string {
	return filepath.Join(d.dbPath, hex.EncodeToString(key)+".dat")
}
