package rollback

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuchenwei/rewind/internal/checkpoint"
	"github.com/yuchenwei/rewind/internal/config"
)

// GuideFileName is the name of the manual rollback guide written into a
// checkpoint's storage area.
const GuideFileName = "manual_rollback_guide.md"

// Guide renders the manual rollback guide for a checkpoint: everything a
// human needs to restore the recorded state by hand.
func Guide(cp *checkpoint.Checkpoint, cfg *config.Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Manual Rollback Guide\n\n")
	fmt.Fprintf(&b, "## Checkpoint\n\n")
	fmt.Fprintf(&b, "- **Name**: %s\n", cp.Name)
	fmt.Fprintf(&b, "- **ID**: %s\n", cp.ID)
	fmt.Fprintf(&b, "- **Created**: %s\n", cp.CreatedAt)
	revision := cp.VCSRevision
	if revision == "" {
		revision = "not recorded"
	}
	fmt.Fprintf(&b, "- **Revision**: %s\n\n", revision)

	fmt.Fprintf(&b, "## 1. Restore files\n\n")
	if len(cp.FileSnapshots) == 0 {
		fmt.Fprintf(&b, "No files were captured; nothing to copy.\n\n")
	} else {
		fmt.Fprintf(&b, "Copy these backups from `%s/files/` back into the project root:\n\n", cp.ID)
		rels := make([]string, 0, len(cp.FileSnapshots))
		for rel := range cp.FileSnapshots {
			rels = append(rels, rel)
		}
		sort.Strings(rels)
		for _, rel := range rels {
			fmt.Fprintf(&b, "- `%s`\n", rel)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## 2. Restore dependencies\n\n```bash\n")
	for _, kind := range []string{"package_json", "requirements_txt"} {
		if cc, ok := cfg.Install[kind]; ok && !cc.Empty() {
			fmt.Fprintf(&b, "%s\n", strings.Join(cc.Command, " "))
		}
	}
	fmt.Fprintf(&b, "```\n\n")

	if cp.VCSRevision != "" {
		fmt.Fprintf(&b, "## 3. Reset source control (optional)\n\n```bash\ngit reset --hard %s\n```\n\n", cp.VCSRevision)
	}

	fmt.Fprintf(&b, "## Verify\n\n```bash\n")
	if !cfg.Build.Empty() {
		fmt.Fprintf(&b, "%s\n", strings.Join(cfg.Build.Command, " "))
	}
	fmt.Fprintf(&b, "```\n\n")

	fmt.Fprintf(&b, "Generated %s\n", time.Now().UTC().Format(time.RFC3339))
	return b.String()
}
