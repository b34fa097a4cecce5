package creator_test

import (
	"context"
	"testing"

	"github.com/ardanlabs/blockcache/foundation/blockchain/creator"
	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ardanlabs/blockcache/foundation/blockchain/storage/memory"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Populate(t *testing.T) {
	t.Log("Given the need to build records from storage.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}

		rec := database.Record{Height: 2, DifficultyTarget: uint256.NewInt(99), Miner: "miner1", Nonce: 7}
		if err := database.WriteRecord(strg, &rec); err != nil {
			t.Fatalf("\t%s\tShould be able to write a record: %v", failed, err)
		}

		c := creator.New(strg)

		shell, err := c.CreateEmptyShell(2)
		if err != nil || shell.Height != 2 {
			t.Fatalf("\t%s\tShould be able to create a shell for height 2: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to create a shell for height 2.", success)

		found, err := c.Populate(context.Background(), shell)
		if err != nil || !found {
			t.Fatalf("\t%s\tShould populate the stored record: found[%v] %v", failed, found, err)
		}
		if shell.Miner != "miner1" || shell.Nonce != 7 {
			t.Fatalf("\t%s\tShould populate the payload fields.", failed)
		}
		t.Logf("\t%s\tShould populate the stored record.", success)

		missing, _ := c.CreateEmptyShell(3)
		found, err = c.Populate(context.Background(), missing)
		if err != nil || found {
			t.Fatalf("\t%s\tShould report a missing record as not found: found[%v] %v", failed, found, err)
		}
		t.Logf("\t%s\tShould report a missing record as not found.", success)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Populate(ctx, shell); err == nil {
			t.Fatalf("\t%s\tShould fail when the context is cancelled.", failed)
		}
		t.Logf("\t%s\tShould fail when the context is cancelled.", success)
	}
}
