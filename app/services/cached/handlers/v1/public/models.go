package public

import (
	"time"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type record struct {
	Height               uint64    `json:"height"`
	Hash                 string    `json:"hash"`
	DifficultyTargetPrev string    `json:"difficulty_target_prev,omitempty"`
	DifficultyTarget     string    `json:"difficulty_target"`
	PrevHash             string    `json:"prev_hash"`
	TimeStamp            uint64    `json:"timestamp"`
	Nonce                uint64    `json:"nonce"`
	Miner                string    `json:"miner"`
	Data                 string    `json:"data,omitempty"`
	Pending              bool      `json:"pending"`
	LastTimeUsed         time.Time `json:"last_time_used,omitempty"`
}

func toRecord(rec *database.Record, pending bool) record {
	r := record{
		Height:    rec.Height,
		Hash:      rec.Hash(),
		PrevHash:  rec.PrevHash,
		TimeStamp: rec.TimeStamp,
		Nonce:     rec.Nonce,
		Miner:     rec.Miner,
		Pending:   pending,
	}

	if rec.DifficultyTargetPrev != nil {
		r.DifficultyTargetPrev = rec.DifficultyTargetPrev.Hex()
	}
	if rec.DifficultyTarget != nil {
		r.DifficultyTarget = rec.DifficultyTarget.Hex()
	}
	if len(rec.Data) > 0 {
		r.Data = hexutil.Encode(rec.Data)
	}
	if !pending {
		r.LastTimeUsed = rec.LastTimeUsed()
	}

	return r
}

type work struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
	Work string `json:"work"`
}

type stats struct {
	Records        int        `json:"records"`
	MaxRecords     int        `json:"max_records"`
	MaxIdle        string     `json:"max_idle"`
	SweepInterval  string     `json:"sweep_interval"`
	ChainLength    uint64     `json:"chain_length"`
	PendingHeights int        `json:"pending_heights"`
	OldestUse      *time.Time `json:"oldest_use,omitempty"`
	NewestUse      *time.Time `json:"newest_use,omitempty"`
	Subscribers    int        `json:"subscribers"`
}
