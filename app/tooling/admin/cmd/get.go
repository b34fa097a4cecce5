package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/blockcache/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <height>",
	Short: "Print the record stored at a height.",
	Args:  cobra.ExactArgs(1),
	RunE:  getRun,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func getRun(cmd *cobra.Command, args []string) error {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing height: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.cache.Load(cmd.Context(), height)
	if err != nil {
		return err
	}

	out := struct {
		Hash string `json:"hash"`
		database.RecordData
	}{
		Hash:       rec.Hash(),
		RecordData: database.NewRecordData(rec),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}
