package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage/memory"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_ParseTarget(t *testing.T) {
	type table struct {
		name  string
		input []byte
		valid bool
	}

	tt := []table{
		{name: "one", input: []byte{0x01}, valid: true},
		{name: "padded", input: []byte{0x00, 0x00, 0x0f, 0xff}, valid: true},
		{name: "max", input: database.MaxTarget.Bytes(), valid: true},
		{name: "empty", input: nil, valid: false},
		{name: "zero", input: []byte{0x00, 0x00}, valid: false},
		{name: "above-max", input: new(uint256.Int).AddUint64(database.MaxTarget, 1).Bytes(), valid: false},
		{name: "too-long", input: make([]byte, 33), valid: false},
	}

	t.Log("Given the need to decode stored difficulty targets.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s target.", testID, tst.name)
			{
				f := func(t *testing.T) {
					target, err := database.ParseTarget(tst.input)
					switch tst.valid {
					case true:
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to parse the target: %v", failed, testID, err)
						}
						if !target.Eq(new(uint256.Int).SetBytes(tst.input)) {
							t.Fatalf("\t%s\tTest %d:\tShould get back the encoded value.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould be able to parse the target.", success, testID)

					default:
						if !errors.Is(err, database.ErrMalformedTarget) {
							t.Fatalf("\t%s\tTest %d:\tShould reject the target as malformed: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould reject the target as malformed.", success, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Touch(t *testing.T) {
	t.Log("Given the need to keep the last time used monotonic.")
	{
		var rec database.Record
		now := time.Unix(1_700_000_000, 0)

		rec.Touch(now)
		rec.Touch(now.Add(-time.Minute))
		if !rec.LastTimeUsed().Equal(now) {
			t.Logf("\t%s\tgot: %v", failed, rec.LastTimeUsed())
			t.Logf("\t%s\texp: %v", failed, now)
			t.Fatalf("\t%s\tShould not move the last time used backwards.", failed)
		}
		t.Logf("\t%s\tShould not move the last time used backwards.", success)

		rec.Touch(now.Add(time.Second))
		if !rec.LastTimeUsed().Equal(now.Add(time.Second)) {
			t.Fatalf("\t%s\tShould move the last time used forwards.", failed)
		}
		t.Logf("\t%s\tShould move the last time used forwards.", success)
	}
}

func Test_WriteRecord(t *testing.T) {
	t.Log("Given the need to persist a record with its difficulty entries.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}

		rec := database.Record{
			Height:               4,
			DifficultyTargetPrev: uint256.NewInt(0x0fff),
			DifficultyTarget:     uint256.NewInt(0x0ff0),
			PrevHash:             "0xabc",
			TimeStamp:            1_700_000_000,
			Nonce:                42,
			Miner:                "miner1",
			Data:                 []byte("payload"),
		}

		if err := database.WriteRecord(strg, &rec); err != nil {
			t.Fatalf("\t%s\tShould be able to write the record: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to write the record.", success)

		target, err := database.ReadTarget(strg, database.DifficultyKey(5))
		if err != nil || !target.Eq(rec.DifficultyTarget) {
			t.Fatalf("\t%s\tShould store the record target under height+1: %v", failed, err)
		}
		t.Logf("\t%s\tShould store the record target under height+1.", success)

		prev, err := database.ReadTarget(strg, database.DifficultyKey(4))
		if err != nil || !prev.Eq(rec.DifficultyTargetPrev) {
			t.Fatalf("\t%s\tShould store the parent target under height: %v", failed, err)
		}
		t.Logf("\t%s\tShould store the parent target under height.", success)

		length, err := database.ReadLength(strg)
		if err != nil || length != 5 {
			t.Fatalf("\t%s\tShould advance the chain length to 5, got %d: %v", failed, length, err)
		}
		t.Logf("\t%s\tShould advance the chain length.", success)

		data, err := strg.Get(database.RecordKey(4))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the payload: %v", failed, err)
		}

		shell := database.Record{Height: 4, DifficultyTargetPrev: prev, DifficultyTarget: target}
		if err := database.DecodePayload(&shell, data); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the payload: %v", failed, err)
		}
		if !shell.Equal(&rec) {
			t.Fatalf("\t%s\tShould decode a record equal to the one written.", failed)
		}
		t.Logf("\t%s\tShould decode a record equal to the one written.", success)

		other := database.Record{Height: 7}
		if err := database.DecodePayload(&other, data); !errors.Is(err, database.ErrHeightMismatch) {
			t.Fatalf("\t%s\tShould reject a payload stored for another height: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a payload stored for another height.", success)
	}
}

func Test_WriteRecordPartial(t *testing.T) {
	t.Log("Given the need for a partial write to never leave a loadable record.")
	{
		rec := database.Record{
			Height:               4,
			DifficultyTargetPrev: uint256.NewInt(0x0fff),
			DifficultyTarget:     uint256.NewInt(0x0ff0),
			Miner:                "miner1",
		}

		// The batch holds both difficulty entries, the payload and the length.
		const entries = 4

		for applied := 0; applied < entries; applied++ {
			t.Logf("\tTest %d:\tWhen the write stops after %d entries.", applied, applied)
			{
				mem, err := memory.New()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, applied, err)
				}
				strg := partialStorage{Storage: mem, applied: applied}

				if err := database.WriteRecord(&strg, &rec); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould report the failed write.", failed, applied)
				}

				if _, err := mem.Get(database.RecordKey(4)); err == nil {
					for _, key := range [][]byte{database.DifficultyKey(4), database.DifficultyKey(5)} {
						if _, err := mem.Get(key); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould store %s before the payload: %v", failed, applied, key, err)
						}
					}
				}

				length, err := database.ReadLength(mem)
				if err != nil || length != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould not advance the chain length: %d %v", failed, applied, length, err)
				}
				t.Logf("\t%s\tTest %d:\tShould leave nothing loadable behind.", success, applied)
			}
		}
	}
}

// partialStorage applies a batch in order and fails once the
// configured number of entries has been written.
type partialStorage struct {
	database.Storage
	applied int
}

func (p *partialStorage) Write(batch database.Batch) error {
	for i, kv := range batch {
		if i == p.applied {
			return errors.New("write interrupted")
		}
		if err := p.Storage.Put(kv.Key, kv.Value); err != nil {
			return err
		}
	}

	return nil
}
