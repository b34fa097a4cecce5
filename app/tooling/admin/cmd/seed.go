package cmd

import (
	"fmt"
	"time"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var (
	seedCount  uint64
	seedMiner  string
	seedTarget string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Append a synthetic chain of records to the store.",
	RunE:  seedRun,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Uint64VarP(&seedCount, "count", "n", 100, "Number of records to append.")
	seedCmd.Flags().StringVarP(&seedMiner, "miner", "m", "miner1", "Miner credited with the records.")
	seedCmd.Flags().StringVarP(&seedTarget, "target", "t", "0x00000fffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "Difficulty target of the first record.")
}

func seedRun(cmd *cobra.Command, args []string) error {
	b, err := hexutil.Decode(seedTarget)
	if err != nil {
		return fmt.Errorf("parsing target: %w", err)
	}

	target, err := database.ParseTarget(b)
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	start := s.saver.Length()

	var prev *database.Record
	if start > 0 {
		if prev, err = s.cache.Load(cmd.Context(), start-1); err != nil {
			return fmt.Errorf("loading tip: %w", err)
		}
		target = prev.DifficultyTarget
	}

	for height := start; height < start+seedCount; height++ {
		rec := database.Record{
			Height:           height,
			DifficultyTarget: nextTarget(target, height),
			TimeStamp:        uint64(time.Now().UTC().UnixMilli()),
			Nonce:            height,
			Miner:            seedMiner,
			Data:             []byte(fmt.Sprintf("record %d", height)),
		}

		if prev != nil {
			rec.DifficultyTargetPrev = prev.DifficultyTarget
			rec.PrevHash = prev.Hash()
		}

		if err := s.saver.Enqueue(&rec); err != nil {
			return err
		}

		target = rec.DifficultyTarget
		prev = &rec
	}

	if err := s.saver.Flush(); err != nil {
		return err
	}

	fmt.Printf("seeded heights %d to %d, chain length %d\n", start, start+seedCount-1, s.saver.Length())

	return nil
}

// nextTarget doubles the difficulty every tenth record.
func nextTarget(target *uint256.Int, height uint64) *uint256.Int {
	if height == 0 || height%10 != 0 {
		return target
	}

	next := new(uint256.Int).Rsh(target, 1)
	if next.IsZero() {
		return uint256.NewInt(1)
	}

	return next
}
