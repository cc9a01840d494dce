package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchenwei/rewind/internal/config"
	"github.com/yuchenwei/rewind/internal/vcs"
)

func newTestCapturer(t *testing.T) (*Capturer, *Store, *config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.ProjectRoot = t.TempDir()
	cfg.BaseDir = t.TempDir()
	require.NoError(t, cfg.EnsureDirs())

	store, err := Open(cfg.CheckpointsDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	capturer := NewCapturer(cfg, vcs.New(cfg.ProjectRoot), store, zerolog.Nop())
	return capturer, store, cfg
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCaptureSkipsMissingFiles(t *testing.T) {
	capturer, store, cfg := newTestCapturer(t)

	// Two of the default snapshot files exist, the rest do not.
	writeFile(t, cfg.ProjectRoot, "package.json", `{"name":"demo"}`)
	writeFile(t, cfg.ProjectRoot, "wrangler.toml", "name = \"demo\"\n")

	cp, err := capturer.Capture(context.Background(), "partial-project", "graceful")
	require.NoError(t, err)

	assert.Len(t, cp.FileSnapshots, 2)
	assert.Contains(t, cp.FileSnapshots, "package.json")
	assert.Contains(t, cp.FileSnapshots, "wrangler.toml")
	assert.NotContains(t, cp.FileSnapshots, "astro.config.mjs")

	// The backups are byte-for-byte copies inside the storage area.
	backup := filepath.Join(store.CheckpointDir(cp.ID), cp.FileSnapshots["package.json"])
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"demo"}`, string(data))
}

func TestCaptureDependencySnapshot(t *testing.T) {
	capturer, _, cfg := newTestCapturer(t)

	writeFile(t, cfg.ProjectRoot, "package.json", `{"name":"demo","dependencies":{"left-pad":"1.0.0"}}`)
	writeFile(t, cfg.ProjectRoot, "requirements.txt", "requests==2.31.0\n")

	cp, err := capturer.Capture(context.Background(), "deps", "graceful")
	require.NoError(t, err)

	require.NotNil(t, cp.Dependencies.PackageJSON)
	assert.Equal(t, "demo", cp.Dependencies.PackageJSON["name"])
	assert.Equal(t, "requests==2.31.0\n", cp.Dependencies.RequirementsTxt)
}

func TestCaptureInvalidManifestDegrades(t *testing.T) {
	capturer, _, cfg := newTestCapturer(t)

	writeFile(t, cfg.ProjectRoot, "package.json", "not json at all")

	cp, err := capturer.Capture(context.Background(), "bad-manifest", "graceful")
	require.NoError(t, err)

	// The file copy is still taken; only the parsed snapshot is absent.
	assert.Contains(t, cp.FileSnapshots, "package.json")
	assert.Nil(t, cp.Dependencies.PackageJSON)
}

func TestCaptureEnvironmentAllowListOnly(t *testing.T) {
	capturer, _, _ := newTestCapturer(t)

	t.Setenv("NODE_ENV", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "do-not-capture")

	cp, err := capturer.Capture(context.Background(), "env", "graceful")
	require.NoError(t, err)

	assert.Equal(t, "test", cp.Environment["NODE_ENV"])
	_, ok := cp.Environment["AWS_SECRET_ACCESS_KEY"]
	assert.False(t, ok)
}

func TestCaptureCleansUpAfterFailedBackup(t *testing.T) {
	capturer, store, cfg := newTestCapturer(t)
	cfg.SnapshotFiles = []string{"a.txt", "blocked"}

	// The first path copies fine; the second is a directory, which the
	// backup cannot read, so capture fails midway.
	writeFile(t, cfg.ProjectRoot, "a.txt", "content")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ProjectRoot, "blocked"), 0755))

	_, err := capturer.Capture(context.Background(), "doomed", "graceful")
	require.Error(t, err)

	// The partial storage area is removed, not left orphaned.
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "checkpoint_"),
			"orphaned storage area %s left after failed capture", e.Name())
	}

	summaries, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestCaptureOutsideRepositoryRecordsNoRevision(t *testing.T) {
	capturer, _, _ := newTestCapturer(t)

	cp, err := capturer.Capture(context.Background(), "no-vcs", "immediate")
	require.NoError(t, err)
	assert.Empty(t, cp.VCSRevision)
}

func TestCaptureIDsAreMonotonic(t *testing.T) {
	capturer, _, _ := newTestCapturer(t)

	a, err := capturer.Capture(context.Background(), "first", "graceful")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	b, err := capturer.Capture(context.Background(), "second", "graceful")
	require.NoError(t, err)

	assert.Less(t, a.ID, b.ID)
	assert.Less(t, a.CreatedAt, b.CreatedAt)
}
