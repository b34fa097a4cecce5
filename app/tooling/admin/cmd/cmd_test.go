package cmd

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Seed(t *testing.T) {
	t.Log("Given the need to seed a store with a synthetic chain.")
	{
		log = zap.NewNop().Sugar()
		path := filepath.Join(t.TempDir(), "cache.db")

		for i := 0; i < 2; i++ {
			rootCmd.SetArgs([]string{"seed", "-e", storage.EngineBolt, "-d", path, "-n", "15"})
			if err := rootCmd.ExecuteContext(context.Background()); err != nil {
				t.Fatalf("\t%s\tShould be able to seed the store, run %d: %v", failed, i, err)
			}
		}
		t.Logf("\t%s\tShould be able to seed the store twice.", success)

		s, err := openStore()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open the store: %v", failed, err)
		}
		defer s.Close()

		if s.saver.Length() != 30 {
			t.Fatalf("\t%s\tShould have a chain length of 30: got %d", failed, s.saver.Length())
		}
		t.Logf("\t%s\tShould have a chain length of 30.", success)

		ctx := context.Background()

		for height := uint64(1); height < 30; height++ {
			rec, err := s.cache.Load(ctx, height)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to load record %d: %v", failed, height, err)
			}

			parent, err := s.cache.Load(ctx, height-1)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to load record %d: %v", failed, height-1, err)
			}

			if rec.PrevHash != parent.Hash() || !rec.DifficultyTargetPrev.Eq(parent.DifficultyTarget) {
				t.Fatalf("\t%s\tShould link record %d to its parent.", failed, height)
			}
		}
		t.Logf("\t%s\tShould link every record to its parent.", success)

		first, err := s.cache.Work(ctx, 0)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute work: %v", failed, err)
		}
		if first.Cmp(big.NewInt(1)) != 0 {
			t.Fatalf("\t%s\tShould start at the easiest target: %v", failed, first)
		}

		last, err := s.cache.Work(ctx, 29)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute work: %v", failed, err)
		}
		exp := new(big.Int).Quo(database.MaxTarget.ToBig(), new(big.Int).Rsh(database.MaxTarget.ToBig(), 2))
		if last.Cmp(exp) != 0 {
			t.Fatalf("\t%s\tShould get harder records over time: first %v last %v", failed, first, last)
		}
		t.Logf("\t%s\tShould get harder records over time.", success)
	}
}
