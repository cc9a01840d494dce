package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuchenwei/rewind/internal/rollback"
)

var (
	checkpointName     string
	checkpointStrategy string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage rollback checkpoints",
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture a new checkpoint of project state",
	RunE:  createCheckpoint,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints, newest first",
	RunE:  listCheckpoints,
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show [checkpoint-id]",
	Short: "Print the full checkpoint record",
	Args:  cobra.ExactArgs(1),
	RunE:  showCheckpoint,
}

var checkpointRemoveCmd = &cobra.Command{
	Use:   "rm [checkpoint-id]",
	Short: "Remove a checkpoint and its storage area",
	Args:  cobra.ExactArgs(1),
	RunE:  removeCheckpoint,
}

func init() {
	checkpointCreateCmd.Flags().StringVar(&checkpointName, "name", "manual", "Human-readable checkpoint label")
	checkpointCreateCmd.Flags().StringVar(&checkpointStrategy, "strategy", "graceful", "Default rollback strategy (immediate|graceful|partial|manual)")

	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointRemoveCmd)
}

func createCheckpoint(cmd *cobra.Command, args []string) error {
	strategy, err := rollback.ParseStrategy(checkpointStrategy)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cp, err := a.capturer.Capture(context.Background(), checkpointName, strategy.String())
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	fmt.Printf("%s %s (%s, %d files)\n", styleSuccess.Render("Checkpoint created:"), cp.ID, cp.Name, len(cp.FileSnapshots))
	if cp.VCSRevision != "" {
		fmt.Println(styleDim.Render("revision " + cp.VCSRevision))
	}
	return nil
}

func listCheckpoints(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	summaries, err := a.store.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No checkpoints found.")
		return nil
	}

	fmt.Printf("%-30s %-18s %-10s %-6s %s\n", "ID", "NAME", "STRATEGY", "FILES", "CREATED")
	for _, s := range summaries {
		fmt.Printf("%-30s %-18s %-10s %-6d %s\n",
			s.ID, truncate(s.Name, 18), s.Strategy, s.FileCount, truncate(s.CreatedAt, 19))
	}
	return nil
}

func showCheckpoint(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cp, err := a.store.Load(args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func removeCheckpoint(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed checkpoint %s\n", args[0])
	return nil
}
