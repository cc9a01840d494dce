package checkpoint

import (
	"fmt"
	"time"
)

// DependencySnapshot is the structured backup of dependency manifests carried
// inside the checkpoint record itself, so a restore can rewrite the manifests
// without depending on the original files still existing. Each field is
// optional and independent.
type DependencySnapshot struct {
	// PackageJSON is the parsed content of package.json.
	PackageJSON map[string]any `json:"package_json,omitempty"`
	// RequirementsTxt is the raw content of requirements.txt.
	RequirementsTxt string `json:"requirements_txt,omitempty"`
}

// Checkpoint is an immutable record of project state taken before a risky
// operation. It is written once by the Capturer, read many times by the
// rollback engine, and deleted only by eviction or explicit removal.
type Checkpoint struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Strategy    string `json:"strategy"` // default intent; restores may override
	CreatedAt   string `json:"created_at"`
	ProjectRoot string `json:"project_root"`

	// VCSRevision is best-effort: empty when the revision lookup failed.
	VCSRevision string `json:"vcs_revision,omitempty"`

	// FileSnapshots maps project-relative paths to backup locations inside
	// the checkpoint's storage area. A path absent from the map did not
	// exist at capture time and must not be restored as existing.
	FileSnapshots map[string]string `json:"file_snapshots"`

	Dependencies DependencySnapshot `json:"dependency_snapshot"`

	// Environment holds only allow-listed variables.
	Environment map[string]string `json:"environment_snapshot,omitempty"`
}

// Summary is the listing view of a checkpoint.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Strategy    string `json:"strategy"`
	CreatedAt   string `json:"created_at"`
	VCSRevision string `json:"vcs_revision,omitempty"`
	FileCount   int    `json:"file_count"`
}

// Summary returns the listing view of c.
func (c *Checkpoint) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Name:        c.Name,
		Strategy:    c.Strategy,
		CreatedAt:   c.CreatedAt,
		VCSRevision: c.VCSRevision,
		FileCount:   len(c.FileSnapshots),
	}
}

// NewID derives a checkpoint identifier from the creation instant. IDs sort
// in creation order and double as the storage directory name.
func NewID(now time.Time) string {
	return fmt.Sprintf("checkpoint_%d", now.UnixNano())
}
