// Package storage provides access to the set of storage engines that can
// back the ledger record cache.
package storage

import (
	"fmt"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage/badger"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage/memory"
)

// Set of supported storage engines.
const (
	EngineMemory = "memory"
	EngineDisk   = "disk"
	EngineBadger = "badger"
	EngineBolt   = "bolt"
)

// Open constructs the storage engine identified by name. The path is
// ignored by the memory engine.
func Open(engine string, dbPath string) (database.Storage, error) {
	switch engine {
	case EngineMemory:
		return memory.New()
	case EngineDisk:
		return disk.New(dbPath)
	case EngineBadger:
		return badger.New(dbPath)
	case EngineBolt:
		return bolt.New(dbPath)
	}

	return nil, fmt.Errorf("unknown storage engine %q", engine)
}
