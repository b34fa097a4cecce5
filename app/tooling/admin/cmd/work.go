package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var workCmd = &cobra.Command{
	Use:   "work <height>",
	Short: "Print the work of the record at a height.",
	Args:  cobra.ExactArgs(1),
	RunE:  workRun,
}

var cumWorkCmd = &cobra.Command{
	Use:   "cumwork <from> <to>",
	Short: "Print the total work of an inclusive range of heights.",
	Args:  cobra.ExactArgs(2),
	RunE:  cumWorkRun,
}

func init() {
	rootCmd.AddCommand(workCmd)
	rootCmd.AddCommand(cumWorkCmd)
}

func workRun(cmd *cobra.Command, args []string) error {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing height: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	work, err := s.cache.Work(cmd.Context(), height)
	if err != nil {
		return err
	}

	fmt.Println(work.String())

	return nil
}

func cumWorkRun(cmd *cobra.Command, args []string) error {
	from, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing from: %w", err)
	}

	to, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing to: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	work, err := s.cache.CumulativeWork(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	fmt.Println(work.String())

	return nil
}
