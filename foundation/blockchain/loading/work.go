package loading

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/holiman/uint256"
)

// Work returns the amount of effort the record at the height represents,
// MaxTarget divided by the target the record was produced against. The
// division floors and never touches floating point.
//
// The target is the one stored under DifficultyKey(height+1), the same entry
// the cache assigns to Record.DifficultyTarget. A record still waiting to be
// written supplies its own target since its entry isn't stored yet.
func (m *Manager) Work(ctx context.Context, height uint64) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := m.workTarget(height)
	if err != nil {
		return nil, &MissingDifficultyError{Height: height, Err: err}
	}

	return workFor(target).ToBig(), nil
}

// CumulativeWork returns the sum of the work for every height in the
// inclusive range. The range has to end inside the chain and can't cover more
// than MaxWorkRange heights. The first missing difficulty stops the sum.
func (m *Manager) CumulativeWork(ctx context.Context, from uint64, to uint64) (*big.Int, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range: from %d greater than to %d", from, to)
	}

	if length := m.chain.Length(); to >= length {
		return nil, &OutOfRangeError{Height: to, Length: length}
	}

	if span := to - from + 1; span > m.maxWorkRange {
		return nil, fmt.Errorf("%w: %d heights, limit %d", ErrRangeTooWide, span, m.maxWorkRange)
	}

	total := new(big.Int)
	for height := from; ; height++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, err := m.workTarget(height)
		if err != nil {
			return nil, &MissingDifficultyError{Height: height, Err: err}
		}

		// A single work value fits in 256 bits but the sum may not.
		total.Add(total, workFor(target).ToBig())

		if height == to {
			break
		}
	}

	return total, nil
}

// workTarget returns the target the work for the height is computed from.
func (m *Manager) workTarget(height uint64) (*uint256.Int, error) {
	if pending := m.pending.PendingRecordsAt(height); len(pending) > 0 {
		target := pending[0].DifficultyTarget
		if target == nil {
			return nil, errors.New("pending record has no difficulty target")
		}
		if target.IsZero() || target.Gt(database.MaxTarget) {
			return nil, fmt.Errorf("%w: pending record target %s", database.ErrMalformedTarget, target.Hex())
		}
		return target, nil
	}

	return database.ReadTarget(m.storage, database.DifficultyKey(height+1))
}

// workFor computes floor(MaxTarget / target). The target is never zero.
func workFor(target *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(database.MaxTarget, target)
}
