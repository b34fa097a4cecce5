package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ErrHeightMismatch is returned when the record stored under a height key
// claims a different height.
var ErrHeightMismatch = errors.New("stored record height does not match key")

// =============================================================================

// Record represents an immutable unit of ledger data indexed by height. Only
// the last time used value changes once a record has been materialized and
// it is maintained by the cache.
type Record struct {
	Height               uint64       // Position of the record in the chain.
	DifficultyTargetPrev *uint256.Int // Target of the parent record.
	DifficultyTarget     *uint256.Int // Target this record was produced against.
	PrevHash             string       // Hash of the parent record.
	TimeStamp            uint64       // Time the record was produced.
	Nonce                uint64       // Value identified to solve the target.
	Miner                string       // Account credited with producing the record.
	Data                 []byte       // Opaque payload.

	lastTimeUsed atomic.Int64
}

// Hash returns the unique hash for the record payload.
func (r *Record) Hash() string {
	data, err := json.Marshal(newRecordData(r))
	if err != nil {
		return ""
	}

	return crypto.Keccak256Hash(data).Hex()
}

// LastTimeUsed returns the last time the cache served this record.
func (r *Record) LastTimeUsed() time.Time {
	return time.Unix(0, r.lastTimeUsed.Load())
}

// Touch moves the last time used value forward to t. The value never moves
// backwards, so concurrent lookups keep it monotonic.
func (r *Record) Touch(t time.Time) {
	next := t.UnixNano()
	for {
		cur := r.lastTimeUsed.Load()
		if next <= cur {
			return
		}
		if r.lastTimeUsed.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Equal reports whether both records carry the same data. The last time used
// value is not considered.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}

	return r.Height == o.Height &&
		targetEqual(r.DifficultyTargetPrev, o.DifficultyTargetPrev) &&
		targetEqual(r.DifficultyTarget, o.DifficultyTarget) &&
		r.PrevHash == o.PrevHash &&
		r.TimeStamp == o.TimeStamp &&
		r.Nonce == o.Nonce &&
		r.Miner == o.Miner &&
		string(r.Data) == string(o.Data)
}

func targetEqual(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eq(b)
}

// =============================================================================

// RecordData represents what is written to storage and over the network.
type RecordData struct {
	Height               uint64        `json:"height"`
	DifficultyTargetPrev hexutil.Bytes `json:"difficulty_target_prev,omitempty"`
	DifficultyTarget     hexutil.Bytes `json:"difficulty_target"`
	PrevHash             string        `json:"prev_hash"`
	TimeStamp            uint64        `json:"timestamp"`
	Nonce                uint64        `json:"nonce"`
	Miner                string        `json:"miner"`
	Data                 hexutil.Bytes `json:"data,omitempty"`
}

// NewRecordData constructs the value to serialize to storage.
func NewRecordData(r *Record) RecordData {
	return newRecordData(r)
}

func newRecordData(r *Record) RecordData {
	rd := RecordData{
		Height:    r.Height,
		PrevHash:  r.PrevHash,
		TimeStamp: r.TimeStamp,
		Nonce:     r.Nonce,
		Miner:     r.Miner,
		Data:      r.Data,
	}

	if r.DifficultyTargetPrev != nil {
		rd.DifficultyTargetPrev = EncodeTarget(r.DifficultyTargetPrev)
	}
	if r.DifficultyTarget != nil {
		rd.DifficultyTarget = EncodeTarget(r.DifficultyTarget)
	}

	return rd
}

// ToRecord converts the serialized form back into a record, validating any
// targets it carries.
func ToRecord(rd RecordData) (*Record, error) {
	r := Record{
		Height:    rd.Height,
		PrevHash:  rd.PrevHash,
		TimeStamp: rd.TimeStamp,
		Nonce:     rd.Nonce,
		Miner:     rd.Miner,
		Data:      rd.Data,
	}

	if len(rd.DifficultyTargetPrev) > 0 {
		target, err := ParseTarget(rd.DifficultyTargetPrev)
		if err != nil {
			return nil, fmt.Errorf("difficulty target prev: %w", err)
		}
		r.DifficultyTargetPrev = target
	}

	target, err := ParseTarget(rd.DifficultyTarget)
	if err != nil {
		return nil, fmt.Errorf("difficulty target: %w", err)
	}
	r.DifficultyTarget = target

	return &r, nil
}

// DecodePayload fills the payload fields of the record from the stored form.
// The difficulty targets are left untouched since they come from their own
// storage entries.
func DecodePayload(r *Record, data []byte) error {
	var rd RecordData
	if err := json.Unmarshal(data, &rd); err != nil {
		return fmt.Errorf("unmarshal record %d: %w", r.Height, err)
	}

	if rd.Height != r.Height {
		return fmt.Errorf("%w: key %d, record %d", ErrHeightMismatch, r.Height, rd.Height)
	}

	r.PrevHash = rd.PrevHash
	r.TimeStamp = rd.TimeStamp
	r.Nonce = rd.Nonce
	r.Miner = rd.Miner
	r.Data = rd.Data

	return nil
}

// =============================================================================

// WriteRecord persists the record payload together with the difficulty
// entries on both sides of it and the stored chain length. The length is
// only moved forward.
func WriteRecord(strg Storage, r *Record) error {
	if r.DifficultyTarget == nil {
		return fmt.Errorf("record %d: missing difficulty target", r.Height)
	}

	data, err := json.Marshal(newRecordData(r))
	if err != nil {
		return fmt.Errorf("marshal record %d: %w", r.Height, err)
	}

	// Engines without transactions apply the batch in order. The payload goes
	// after its difficulty entries and the length goes last, so a partial
	// write never leaves a record that looks loadable.
	var batch Batch
	batch.Add(DifficultyKey(r.Height+1), EncodeTarget(r.DifficultyTarget))
	if r.DifficultyTargetPrev != nil {
		batch.Add(DifficultyKey(r.Height), EncodeTarget(r.DifficultyTargetPrev))
	}
	batch.Add(RecordKey(r.Height), data)

	length, err := ReadLength(strg)
	if err != nil {
		return err
	}
	if r.Height+1 > length {
		batch.Add(LengthKey, []byte(strconv.FormatUint(r.Height+1, 10)))
	}

	return strg.Write(batch)
}

// ReadLength returns the number of durably stored records. An empty store
// has a length of zero.
func ReadLength(strg Storage) (uint64, error) {
	b, err := strg.Get(LengthKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading chain length: %w", err)
	}

	length, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decoding chain length %q: %w", b, err)
	}

	return length, nil
}
