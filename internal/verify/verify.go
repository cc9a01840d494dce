package verify

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/yuchenwei/rewind/internal/checkpoint"
	"github.com/yuchenwei/rewind/internal/config"
	"github.com/yuchenwei/rewind/internal/toolchain"
)

// Report is the outcome of a post-restore verification pass.
type Report struct {
	Success        bool     `json:"success"`
	MissingFiles   []string `json:"missing_files,omitempty"`
	BuildSucceeded bool     `json:"build_succeeded"`
	BuildOutput    string   `json:"build_output,omitempty"`
}

// Verifier confirms that a restore left the project in the expected state.
// It is the authority on overall outcome for strategies that include it: a
// failed verification downgrades an otherwise clean restore.
type Verifier struct {
	projectRoot string
	tools       *toolchain.Runner
}

func New(cfg *config.Config, tools *toolchain.Runner) *Verifier {
	return &Verifier{projectRoot: cfg.ProjectRoot, tools: tools}
}

// Verify checks that every snapshotted path exists on disk and that the
// project's build command succeeds within its timeout.
func (v *Verifier) Verify(ctx context.Context, cp *checkpoint.Checkpoint) Report {
	report := Report{
		MissingFiles: v.MissingFiles(cp, nil),
	}

	res := v.tools.Build(ctx)
	report.BuildSucceeded = res.OK()
	if !res.OK() {
		report.BuildOutput = res.Output
		if res.Stderr != "" {
			report.BuildOutput = res.Stderr
		}
	}

	report.Success = len(report.MissingFiles) == 0 && report.BuildSucceeded
	return report
}

// MissingFiles returns every snapshotted path that does not exist on disk.
// When only is non-nil, the check is limited to paths in that set.
func (v *Verifier) MissingFiles(cp *checkpoint.Checkpoint, only map[string]bool) []string {
	var missing []string
	for rel := range cp.FileSnapshots {
		if only != nil && !only[rel] {
			continue
		}
		if _, err := os.Stat(filepath.Join(v.projectRoot, rel)); err != nil {
			missing = append(missing, rel)
		}
	}
	sort.Strings(missing)
	return missing
}
