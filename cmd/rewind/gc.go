package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	gcKeep   int
	gcDryRun bool
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Evict old checkpoints",
	Long:  "Delete all but the N newest checkpoints to free disk space. Each deletion is attempted independently.",
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().IntVar(&gcKeep, "keep", 0, "Keep the N newest checkpoints (default: config keep_checkpoints)")
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "Show what would be deleted without deleting")
}

func runGC(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	keep := gcKeep
	if keep <= 0 {
		keep = a.cfg.KeepCheckpoints
	}

	if gcDryRun {
		summaries, err := a.store.List()
		if err != nil {
			return err
		}
		if len(summaries) <= keep {
			fmt.Println("[GC] Nothing to clean up")
			return nil
		}
		fmt.Println("[GC] Dry run mode, no checkpoints will be deleted")
		for _, s := range summaries[keep:] {
			fmt.Printf("[GC] Would remove %s (%s)\n", s.ID, s.Name)
		}
		return nil
	}

	result, err := a.store.Evict(keep)
	if err != nil {
		return fmt.Errorf("gc failed: %w", err)
	}

	for _, id := range result.Removed {
		fmt.Printf("[GC] Removed %s\n", id)
	}
	for _, f := range result.Failed {
		fmt.Printf("%s could not remove %s: %v\n", styleWarn.Render("[GC]"), f.ID, f.Err)
	}
	if len(result.Removed) == 0 && len(result.Failed) == 0 {
		fmt.Println("[GC] Nothing to clean up")
	}
	return nil
}
