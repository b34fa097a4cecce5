// Package creator builds ledger records from storage. It hands out empty
// record shells for a height and fills them from their stored payload.
package creator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
)

// Creator constructs records backed by the specified storage.
type Creator struct {
	storage database.Storage
}

// New constructs a creator for use.
func New(strg database.Storage) *Creator {
	return &Creator{
		storage: strg,
	}
}

// CreateEmptyShell returns a record that only knows its height.
func (c *Creator) CreateEmptyShell(height uint64) (*database.Record, error) {
	return &database.Record{Height: height}, nil
}

// Populate fills the payload of the shell from storage. It returns false
// when nothing is stored for the height.
func (c *Creator) Populate(ctx context.Context, rec *database.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	data, err := c.storage.Get(database.RecordKey(rec.Height))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reading record %d: %w", rec.Height, err)
	}

	if err := database.DecodePayload(rec, data); err != nil {
		return false, err
	}

	// The read may have outlived the deadline the cache gave us.
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return true, nil
}
