package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuchenwei/rewind/internal/rollback"
)

var (
	rollbackStrategy string
	rollbackReason   string

	selectErrorKind string
	selectSeverity  string
	selectManual    bool
	selectMessage   string
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [checkpoint-id]",
	Short: "Restore project state from a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  executeRollback,
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Pick a rollback strategy for a failure",
	Long:  "Maps an error kind and severity (or a raw failure message) to the strategy a rollback should use.",
	RunE:  selectStrategy,
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackStrategy, "strategy", "", "Override the checkpoint's recorded strategy (immediate|graceful|partial|manual)")
	rollbackCmd.Flags().StringVar(&rollbackReason, "reason", "", "Free-text cause recorded with the attempt")

	selectCmd.Flags().StringVar(&selectErrorKind, "error-kind", "unknown", "Error kind (build_failure|dependency_conflict|test_failure|lint_warning|deployment_failure|unknown)")
	selectCmd.Flags().StringVar(&selectSeverity, "severity", "medium", "Severity (low|medium|high|critical)")
	selectCmd.Flags().BoolVar(&selectManual, "manual-intervention", false, "Manual intervention is required")
	selectCmd.Flags().StringVar(&selectMessage, "message", "", "Classify this failure message instead of --error-kind")

	rollbackCmd.AddCommand(selectCmd)
}

func executeRollback(cmd *cobra.Command, args []string) error {
	var override rollback.Strategy
	if rollbackStrategy != "" {
		parsed, err := rollback.ParseStrategy(rollbackStrategy)
		if err != nil {
			return err
		}
		override = parsed
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.engine.Execute(context.Background(), args[0], override, rollbackReason)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	fmt.Printf("Rollback of %s (%s strategy)\n", result.CheckpointID, result.Strategy)
	for _, s := range result.Steps {
		line := fmt.Sprintf("%s %s", renderStepStatus(s.OK(), s.Required), s.Name)
		if len(s.RestoredFiles) > 0 {
			line += styleDim.Render(fmt.Sprintf(" (%d files)", len(s.RestoredFiles)))
		}
		if s.Detail != "" {
			line += styleDim.Render(" " + s.Detail)
		}
		if s.Error != "" {
			line += " " + styleError.Render(s.Error)
		}
		fmt.Println(line)
	}

	if !result.Success {
		return fmt.Errorf("rollback did not complete successfully (attempt %s)", result.AttemptID)
	}
	fmt.Println(styleSuccess.Render("Rollback completed successfully."))
	return nil
}

func selectStrategy(cmd *cobra.Command, args []string) error {
	kind := rollback.ErrorKind(strings.ToLower(selectErrorKind))
	if selectMessage != "" {
		kind = rollback.ClassifyError(selectMessage)
		fmt.Printf("classified as %s\n", kind)
	}

	strategy := rollback.SelectStrategy(
		kind,
		rollback.Severity(strings.ToLower(selectSeverity)),
		rollback.SelectionContext{ManualInterventionRequired: selectManual},
	)
	fmt.Println(strategy)
	if rollback.ShouldAutoRollback(kind) {
		fmt.Println(styleDim.Render("auto-rollback recommended for this error kind"))
	} else {
		fmt.Println(styleDim.Render("operator confirmation recommended before rollback"))
	}
	return nil
}
