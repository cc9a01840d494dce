package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/yuchenwei/rewind/internal/config"
	"github.com/yuchenwei/rewind/internal/vcs"
)

// Capturer snapshots project state into new checkpoints. Capture fails only
// on irrecoverable I/O; missing files, unreadable manifests, and revision
// lookup failures all degrade to absent fields.
type Capturer struct {
	cfg   *config.Config
	git   *vcs.Git
	store *Store
	log   zerolog.Logger
}

func NewCapturer(cfg *config.Config, git *vcs.Git, store *Store, log zerolog.Logger) *Capturer {
	return &Capturer{cfg: cfg, git: git, store: store, log: log}
}

// Capture creates and persists a new checkpoint. On any failure after the
// storage area was created, the partial area is removed before the error is
// returned, so no orphaned checkpoints are left behind.
func (c *Capturer) Capture(ctx context.Context, name, strategy string) (*Checkpoint, error) {
	now := time.Now().UTC()
	cp := &Checkpoint{
		ID:            NewID(now),
		Name:          name,
		Strategy:      strategy,
		CreatedAt:     now.Format(time.RFC3339Nano),
		ProjectRoot:   c.cfg.ProjectRoot,
		VCSRevision:   c.git.CurrentRevision(ctx),
		FileSnapshots: make(map[string]string),
	}

	dir := c.store.CheckpointDir(cp.ID)
	if err := os.MkdirAll(filepath.Join(dir, "files"), 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: create storage area: %w", err)
	}

	cleanup := func() { os.RemoveAll(dir) }

	if err := c.backupFiles(cp, dir); err != nil {
		cleanup()
		return nil, err
	}
	c.backupDependencies(cp)
	c.backupEnvironment(cp)

	if err := c.store.Save(cp); err != nil {
		cleanup()
		return nil, err
	}

	c.log.Info().
		Str("checkpoint_id", cp.ID).
		Str("name", name).
		Int("files", len(cp.FileSnapshots)).
		Msg("checkpoint created")
	return cp, nil
}

// backupFiles copies every existing snapshot file byte-for-byte into the
// checkpoint's private file area. Paths that do not exist are skipped and
// never recorded.
func (c *Capturer) backupFiles(cp *Checkpoint, dir string) error {
	for _, rel := range c.cfg.SnapshotFiles {
		src := filepath.Join(c.cfg.ProjectRoot, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("checkpoint: read %s: %w", rel, err)
		}

		backup := filepath.Join("files", rel)
		dst := filepath.Join(dir, backup)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("checkpoint: mkdir backup dir: %w", err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("checkpoint: backup %s: %w", rel, err)
		}
		cp.FileSnapshots[rel] = backup
	}
	return nil
}

// backupDependencies stores manifest content inside the record itself, so a
// restore can rewrite the manifests even if the originals are gone.
func (c *Capturer) backupDependencies(cp *Checkpoint) {
	if data, err := os.ReadFile(filepath.Join(c.cfg.ProjectRoot, "package.json")); err == nil {
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err == nil {
			cp.Dependencies.PackageJSON = parsed
		} else {
			c.log.Warn().Err(err).Msg("package.json is not valid JSON, skipping manifest snapshot")
		}
	}
	if data, err := os.ReadFile(filepath.Join(c.cfg.ProjectRoot, "requirements.txt")); err == nil {
		cp.Dependencies.RequirementsTxt = string(data)
	}
}

func (c *Capturer) backupEnvironment(cp *Checkpoint) {
	for _, key := range c.cfg.EnvAllowList {
		if val, ok := os.LookupEnv(key); ok {
			if cp.Environment == nil {
				cp.Environment = make(map[string]string)
			}
			cp.Environment[key] = val
		}
	}
}
