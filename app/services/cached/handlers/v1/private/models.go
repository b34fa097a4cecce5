package private

import (
	"fmt"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// newRecord is what a producer submits for a height that is not yet stored.
type newRecord struct {
	Height               uint64 `json:"height"`
	DifficultyTargetPrev string `json:"difficulty_target_prev" validate:"omitempty,hexadecimal"`
	DifficultyTarget     string `json:"difficulty_target" validate:"required,hexadecimal"`
	PrevHash             string `json:"prev_hash" validate:"omitempty,max=66"`
	TimeStamp            uint64 `json:"timestamp" validate:"required"`
	Nonce                uint64 `json:"nonce"`
	Miner                string `json:"miner" validate:"required,max=64"`
	Data                 string `json:"data" validate:"omitempty,hexadecimal"`
}

// toRecord converts the submitted values into a record, checking the targets
// are in range.
func toRecord(nr newRecord) (*database.Record, error) {
	rd := database.RecordData{
		Height:    nr.Height,
		PrevHash:  nr.PrevHash,
		TimeStamp: nr.TimeStamp,
		Nonce:     nr.Nonce,
		Miner:     nr.Miner,
	}

	var err error

	if nr.DifficultyTargetPrev != "" {
		if rd.DifficultyTargetPrev, err = hexutil.Decode(nr.DifficultyTargetPrev); err != nil {
			return nil, fmt.Errorf("difficulty_target_prev: %w", err)
		}
	}

	if rd.DifficultyTarget, err = hexutil.Decode(nr.DifficultyTarget); err != nil {
		return nil, fmt.Errorf("difficulty_target: %w", err)
	}

	if nr.Data != "" {
		if rd.Data, err = hexutil.Decode(nr.Data); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
	}

	return database.ToRecord(rd)
}
