package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestCurrentRevision(t *testing.T) {
	dir := initRepo(t)
	g := New(dir)

	rev := g.CurrentRevision(context.Background())
	assert.Len(t, rev, 40)
}

func TestCurrentRevisionOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := New(t.TempDir())

	assert.Empty(t, g.CurrentRevision(context.Background()))
}

func TestIsDirty(t *testing.T) {
	dir := initRepo(t)
	g := New(dir)

	dirty, err := g.IsDirty(context.Background())
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two\n"), 0o644))

	dirty, err = g.IsDirty(context.Background())
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestResetHard(t *testing.T) {
	dir := initRepo(t)
	g := New(dir)
	rev := g.CurrentRevision(context.Background())
	require.NotEmpty(t, rev)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed\n"), 0o644))
	require.NoError(t, g.ResetHard(context.Background(), rev))

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))
}
