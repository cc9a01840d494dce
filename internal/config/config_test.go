package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Contains(t, cfg.SnapshotFiles, "package.json")
	assert.Contains(t, cfg.SnapshotFiles, "wrangler.toml")
	assert.Subset(t, cfg.SnapshotFiles, cfg.CoreFiles)
	assert.Contains(t, cfg.EnvAllowList, "NODE_ENV")
	assert.Equal(t, 5, cfg.KeepCheckpoints)
	assert.Equal(t, 180*time.Second, cfg.Build.Duration())
	assert.Contains(t, cfg.Install, "package_json")
	assert.Contains(t, cfg.Install, "requirements_txt")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().SnapshotFiles, cfg.SnapshotFiles)
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewind.yaml")
	data := `
project_root: /tmp/myproject
snapshot_files:
  - go.mod
  - main.go
core_files:
  - go.mod
build:
  command: ["go", "build", "./..."]
keep_checkpoints: 3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/myproject", cfg.ProjectRoot)
	assert.Equal(t, []string{"go.mod", "main.go"}, cfg.SnapshotFiles)
	assert.Equal(t, []string{"go.mod"}, cfg.CoreFiles)
	assert.Equal(t, 3, cfg.KeepCheckpoints)
	assert.Equal(t, []string{"go", "build", "./..."}, cfg.Build.Command)

	// Unset fields fall back to defaults.
	assert.Equal(t, Default().Build.Timeout, cfg.Build.Timeout)
	assert.Equal(t, Default().EnvAllowList, cfg.EnvAllowList)
	assert.NotEmpty(t, cfg.BaseDir)
	assert.Contains(t, cfg.Install, "package_json")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snapshot_files: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestIsCoreFileExactMatch(t *testing.T) {
	cfg := Default()
	cfg.CoreFiles = []string{"src/workers/main.js"}

	assert.True(t, cfg.IsCoreFile("src/workers/main.js"))
	assert.False(t, cfg.IsCoreFile("main.js"))
	assert.False(t, cfg.IsCoreFile("src/workers/main.js.bak"))
	assert.False(t, cfg.IsCoreFile("src/workers"))
}

func TestEnsureDirs(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = filepath.Join(t.TempDir(), "base")

	require.NoError(t, cfg.EnsureDirs())
	for _, d := range []string{cfg.CheckpointsDir(), cfg.HistoryDir(), cfg.LocksDir()} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
