package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/yuchenwei/rewind/internal/rollback"
)

var guideCmd = &cobra.Command{
	Use:   "guide [checkpoint-id]",
	Short: "Generate and display the manual rollback guide for a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  showGuide,
}

func showGuide(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cp, err := a.store.Load(args[0])
	if err != nil {
		return err
	}

	guide := rollback.Guide(cp, a.cfg)
	path := filepath.Join(a.store.CheckpointDir(cp.ID), rollback.GuideFileName)
	if err := os.WriteFile(path, []byte(guide), 0644); err != nil {
		return fmt.Errorf("write guide: %w", err)
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		// Fall back to raw markdown when no terminal renderer is available.
		fmt.Print(guide)
		return nil
	}
	rendered, err := r.Render(guide)
	if err != nil {
		fmt.Print(guide)
		return nil
	}
	fmt.Print(rendered)
	fmt.Println(styleDim.Render("saved to " + path))
	return nil
}
