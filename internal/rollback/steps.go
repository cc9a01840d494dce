package rollback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/yuchenwei/rewind/internal/checkpoint"
	"github.com/yuchenwei/rewind/internal/config"
)

// stepRestoreFiles copies snapshotted files back into the project root,
// unconditionally (no diffing). coreOnly limits the restore to the core
// file set. An empty snapshot restores zero files and succeeds.
func (e *Engine) stepRestoreFiles(coreOnly bool) func(context.Context, *checkpoint.Checkpoint, *Step) error {
	return func(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
		rels := make([]string, 0, len(cp.FileSnapshots))
		for rel := range cp.FileSnapshots {
			rels = append(rels, rel)
		}
		sort.Strings(rels)

		cpDir := e.store.CheckpointDir(cp.ID)
		for _, rel := range rels {
			if coreOnly && !e.cfg.IsCoreFile(rel) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(cpDir, cp.FileSnapshots[rel]))
			if err != nil {
				return fmt.Errorf("read backup of %s: %w", rel, err)
			}
			target := filepath.Join(e.cfg.ProjectRoot, rel)
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("mkdir for %s: %w", rel, err)
			}
			if err := os.WriteFile(target, data, 0644); err != nil {
				return fmt.Errorf("restore %s: %w", rel, err)
			}
			out.RestoredFiles = append(out.RestoredFiles, rel)
		}
		return nil
	}
}

// stepRestoreDependencies rewrites dependency manifests from the snapshot
// carried inside the record, then reinstalls. Each manifest kind is
// independent; a kind absent from the snapshot is skipped.
func (e *Engine) stepRestoreDependencies(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	restored := 0

	if cp.Dependencies.PackageJSON != nil {
		data, err := json.MarshalIndent(cp.Dependencies.PackageJSON, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal package.json: %w", err)
		}
		data = append(data, '\n')
		if err := os.WriteFile(filepath.Join(e.cfg.ProjectRoot, "package.json"), data, 0644); err != nil {
			return fmt.Errorf("write package.json: %w", err)
		}
		res, err := e.tools.Install(ctx, "package_json")
		if err != nil {
			return err
		}
		if !res.OK() {
			return installError("package_json", res.TimedOut, res.Stderr)
		}
		restored++
	}

	if cp.Dependencies.RequirementsTxt != "" {
		if err := os.WriteFile(filepath.Join(e.cfg.ProjectRoot, "requirements.txt"), []byte(cp.Dependencies.RequirementsTxt), 0644); err != nil {
			return fmt.Errorf("write requirements.txt: %w", err)
		}
		res, err := e.tools.Install(ctx, "requirements_txt")
		if err != nil {
			return err
		}
		if !res.OK() {
			return installError("requirements_txt", res.TimedOut, res.Stderr)
		}
		restored++
	}

	out.Detail = fmt.Sprintf("%d manifest(s) restored", restored)
	return nil
}

func installError(kind string, timedOut bool, stderr string) error {
	if timedOut {
		return fmt.Errorf("install for %s timed out", kind)
	}
	return fmt.Errorf("install for %s failed: %s", kind, stderr)
}

// stepRestoreEnvironment re-exports the allow-listed variables recorded at
// capture time.
func (e *Engine) stepRestoreEnvironment(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	keys := make([]string, 0, len(cp.Environment))
	for k := range cp.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := os.Setenv(k, cp.Environment[k]); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
		out.RestoredVars = append(out.RestoredVars, k)
	}
	return nil
}

// stepResetVCS hard-resets source control to the recorded revision. Only
// planned when a revision was recorded at capture time.
func (e *Engine) stepResetVCS(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	if err := e.git.ResetHard(ctx, cp.VCSRevision); err != nil {
		return err
	}
	out.Detail = cp.VCSRevision
	return nil
}

// stepSafetyCheckpoint snapshots the current state into a new
// immediate-strategy checkpoint before the graceful restore mutates
// anything, so the rollback itself can be undone.
func (e *Engine) stepSafetyCheckpoint(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	safety, err := e.capturer.Capture(ctx, "before_rollback", Immediate.String())
	if err != nil {
		return fmt.Errorf("safety checkpoint: %w", err)
	}
	out.SafetyCheckpointID = safety.ID
	return nil
}

// stepStatusCheck records the current VCS dirty flag and a diagnostic build
// attempt. Purely informational: it never fails the sequence.
func (e *Engine) stepStatusCheck(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	dirty, err := e.git.IsDirty(ctx)
	dirtyDesc := fmt.Sprintf("%t", dirty)
	if err != nil {
		dirtyDesc = "unknown"
	}
	res := e.tools.Build(ctx)
	out.Detail = fmt.Sprintf("git_dirty=%s build_ok=%t", dirtyDesc, res.OK())
	return nil
}

// stepService runs the configured stop or start hook. Advisory: an empty
// command is a no-op success.
func (e *Engine) stepService(action string) func(context.Context, *checkpoint.Checkpoint, *Step) error {
	return func(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
		var cc config.CommandConfig
		switch action {
		case "stop":
			cc = e.cfg.Services.Stop
		case "start":
			cc = e.cfg.Services.Start
		}
		if cc.Empty() {
			out.Detail = "no command configured"
			return nil
		}
		res := e.tools.Run(ctx, cc)
		if !res.OK() {
			return fmt.Errorf("service %s failed: %s", action, res.Stderr)
		}
		return nil
	}
}

// stepVerify is the verification authority for graceful restores.
func (e *Engine) stepVerify(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	report := e.verifier.Verify(ctx, cp)
	out.MissingFiles = report.MissingFiles
	out.BuildOutput = report.BuildOutput
	if !report.Success {
		return fmt.Errorf("verification failed: %d missing file(s), build_ok=%t",
			len(report.MissingFiles), report.BuildSucceeded)
	}
	return nil
}

// stepVerifyPartial is the lightweight check after a partial restore:
// existence only, no build attempt.
func (e *Engine) stepVerifyPartial(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	core := make(map[string]bool, len(e.cfg.CoreFiles))
	for _, f := range e.cfg.CoreFiles {
		core[f] = true
	}
	missing := e.verifier.MissingFiles(cp, core)
	out.MissingFiles = missing
	if len(missing) > 0 {
		return fmt.Errorf("partial verification failed: %d missing file(s)", len(missing))
	}
	return nil
}

// stepGenerateGuide writes the manual rollback guide into the checkpoint's
// storage area. The manual strategy mutates no project state.
func (e *Engine) stepGenerateGuide(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error {
	path := filepath.Join(e.store.CheckpointDir(cp.ID), GuideFileName)
	if err := os.WriteFile(path, []byte(Guide(cp, e.cfg)), 0644); err != nil {
		return fmt.Errorf("write guide: %w", err)
	}
	out.GuidePath = path
	return nil
}
