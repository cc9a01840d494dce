package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const commandTimeout = 60 * time.Second

// Git answers version-control queries for a single working directory.
type Git struct {
	workDir string
}

func New(workDir string) *Git {
	return &Git{workDir: workDir}
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// CurrentRevision returns the HEAD commit hash, or "" when the lookup fails.
// Capture callers treat an empty revision as "not recorded", never as an error.
func (g *Git) CurrentRevision(ctx context.Context) string {
	out, err := g.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return out
}

// IsDirty reports whether the working tree has uncommitted changes.
func (g *Git) IsDirty(ctx context.Context) (bool, error) {
	out, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status failed: %w: %s", err, out)
	}
	return out != "", nil
}

// ResetHard resets the working tree to the given revision.
func (g *Git) ResetHard(ctx context.Context, revision string) error {
	out, err := g.git(ctx, "reset", "--hard", revision)
	if err != nil {
		return fmt.Errorf("git reset failed: %w: %s", err, out)
	}
	return nil
}
