package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bctak/delphino/internal/config"
	"github.com/bctak/delphino/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <C source file>",
	Short: "List recorded analysis runs for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <run id> <run id>",
	Short: "Show how the merged external call surface changed between two recorded runs",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryDiff,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum number of runs to list")
	historyCmd.AddCommand(historyDiffCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistoryStore() (*history.Store, error) {
	dir, err := config.FindConfigDir(".")
	if err != nil {
		dir, err = config.EnsureConfigDir(".")
		if err != nil {
			return nil, err
		}
	}
	return history.Open(dir)
}

func runHistory(c *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(c.OutOrStdout(), "no recorded runs for %s\n", args[0])
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(c.OutOrStdout(), "%d\t%s\tnodes=%d edges=%d\n", r.ID, r.RecordedAt, r.NodeCount, r.EdgeCount)
	}
	return nil
}

func runHistoryDiff(c *cobra.Command, args []string) error {
	fromID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}
	toID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[1], err)
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	from, err := store.ByID(fromID)
	if err != nil {
		return err
	}
	to, err := store.ByID(toID)
	if err != nil {
		return err
	}

	var fromEdges, toEdges []string
	if err := json.Unmarshal([]byte(from.MergedGraph), &fromEdges); err != nil {
		return fmt.Errorf("decode run %d: %w", fromID, err)
	}
	if err := json.Unmarshal([]byte(to.MergedGraph), &toEdges); err != nil {
		return fmt.Errorf("decode run %d: %w", toID, err)
	}

	d := history.DiffRuns(fromEdges, toEdges)
	for _, e := range d.Added {
		fmt.Fprintf(c.OutOrStdout(), "+ %s\n", e)
	}
	for _, e := range d.Removed {
		fmt.Fprintf(c.OutOrStdout(), "- %s\n", e)
	}
	return nil
}
