package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchenwei/rewind/internal/checkpoint"
	"github.com/yuchenwei/rewind/internal/config"
	"github.com/yuchenwei/rewind/internal/toolchain"
)

func newTestVerifier(t *testing.T, buildCmd []string) (*Verifier, string) {
	t.Helper()
	cfg := config.Default()
	cfg.ProjectRoot = t.TempDir()
	cfg.Build = config.CommandConfig{Command: buildCmd, Timeout: 30}
	return New(cfg, toolchain.New(cfg)), cfg.ProjectRoot
}

func snapshotOf(paths ...string) *checkpoint.Checkpoint {
	cp := &checkpoint.Checkpoint{FileSnapshots: map[string]string{}}
	for _, p := range paths {
		cp.FileSnapshots[p] = filepath.Join("files", p)
	}
	return cp
}

func TestVerifyAllPresentAndBuildOK(t *testing.T) {
	v, root := newTestVerifier(t, []string{"true"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0644))

	report := v.Verify(context.Background(), snapshotOf("a.txt", "b.txt"))
	assert.True(t, report.Success)
	assert.Empty(t, report.MissingFiles)
	assert.True(t, report.BuildSucceeded)
}

func TestVerifyDetectsMissingFiles(t *testing.T) {
	v, root := newTestVerifier(t, []string{"true"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))

	report := v.Verify(context.Background(), snapshotOf("a.txt", "b.txt", "c.txt"))
	assert.False(t, report.Success)
	assert.Equal(t, []string{"b.txt", "c.txt"}, report.MissingFiles)
	assert.True(t, report.BuildSucceeded)
}

func TestVerifyFailsOnBrokenBuild(t *testing.T) {
	v, root := newTestVerifier(t, []string{"sh", "-c", "echo boom 1>&2; exit 1"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))

	report := v.Verify(context.Background(), snapshotOf("a.txt"))
	assert.False(t, report.Success)
	assert.Empty(t, report.MissingFiles)
	assert.False(t, report.BuildSucceeded)
	assert.Contains(t, report.BuildOutput, "boom")
}

func TestMissingFilesRestrictedSet(t *testing.T) {
	v, _ := newTestVerifier(t, []string{"true"})

	cp := snapshotOf("core.js", "other.cfg")
	missing := v.MissingFiles(cp, map[string]bool{"core.js": true})
	assert.Equal(t, []string{"core.js"}, missing)
}
