package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	url          string
	submitHeight uint64
	submitTarget string
	submitPrev   string
	submitMiner  string
	submitData   string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new record to a running cache service.",
	RunE:  submitRun,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:9080", "Url of the private api.")
	submitCmd.Flags().Uint64Var(&submitHeight, "height", 0, "Height of the record.")
	submitCmd.Flags().StringVarP(&submitTarget, "target", "t", "", "Difficulty target of the record in hex.")
	submitCmd.Flags().StringVar(&submitPrev, "prev-target", "", "Difficulty target of the parent record in hex.")
	submitCmd.Flags().StringVarP(&submitMiner, "miner", "m", "miner1", "Miner credited with the record.")
	submitCmd.Flags().StringVar(&submitData, "data", "", "Payload of the record in hex.")
	submitCmd.MarkFlagRequired("target")
}

func submitRun(cmd *cobra.Command, args []string) error {
	rec := struct {
		Height               uint64 `json:"height"`
		DifficultyTargetPrev string `json:"difficulty_target_prev,omitempty"`
		DifficultyTarget     string `json:"difficulty_target"`
		TimeStamp            uint64 `json:"timestamp"`
		Miner                string `json:"miner"`
		Data                 string `json:"data,omitempty"`
	}{
		Height:               submitHeight,
		DifficultyTargetPrev: submitPrev,
		DifficultyTarget:     submitTarget,
		TimeStamp:            uint64(time.Now().UTC().UnixMilli()),
		Miner:                submitMiner,
		Data:                 submitData,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/blocks/pending", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("submit failed: status %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))

	return nil
}
