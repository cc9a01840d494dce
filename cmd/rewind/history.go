package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCount int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent rollback attempts",
	RunE:  showRollbackHistory,
}

var historyVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the rollback history chain",
	RunE:  verifyRollbackHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 10, "Number of entries to show")
	historyCmd.AddCommand(historyVerifyCmd)
}

func showRollbackHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.history.Recent(historyCount)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No rollback history yet.")
		return nil
	}

	for _, r := range records {
		icon := styleSuccess.Render("[OK]")
		if !r.Success {
			icon = styleError.Render("[FAIL]")
		}
		started := truncate(r.StartedAt, 19)
		reason := r.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Printf("%s %s %-10s %s (%d steps) %s\n", icon, started, r.Strategy, r.CheckpointID, len(r.Steps), styleDim.Render(reason))
	}
	return nil
}

func verifyRollbackHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ok, badIndex, err := a.history.Verify()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("history chain broken at record %d", badIndex)
	}
	fmt.Println(styleSuccess.Render("History chain intact."))
	return nil
}
