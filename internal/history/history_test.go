package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchenwei/rewind/internal/rollback"
)

func sampleResult(id string, success bool) *rollback.Result {
	return &rollback.Result{
		AttemptID:    id,
		CheckpointID: "checkpoint_1",
		Strategy:     rollback.Immediate,
		Reason:       "test",
		StartedAt:    "2026-08-30T10:00:00Z",
		CompletedAt:  "2026-08-30T10:00:05Z",
		Steps: []rollback.Step{
			{Name: "restore_files", Required: true, Status: rollback.StepSuccess},
		},
		Success: success,
	}
}

func TestAppendAndAll(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, log.Append(sampleResult("a", true)))
	require.NoError(t, log.Append(sampleResult("b", false)))

	records, err := log.All()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].AttemptID)
	assert.Equal(t, "b", records[1].AttemptID)
	assert.False(t, records[1].Success)

	// Chain linkage: second record points at the first.
	assert.Empty(t, records[0].PrevHash)
	assert.Equal(t, records[0].Hash, records[1].PrevHash)
}

func TestRecentNewestFirst(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, log.Append(sampleResult(id, true)))
	}

	recent, err := log.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].AttemptID)
	assert.Equal(t, "b", recent[1].AttemptID)
}

func TestChainSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	log, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, log.Append(sampleResult("a", true)))

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, reopened.Append(sampleResult("b", true)))

	ok, bad, err := reopened.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, bad)
}

func TestVerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()

	log, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, log.Append(sampleResult("a", true)))
	require.NoError(t, log.Append(sampleResult("b", false)))

	path := filepath.Join(dir, "records.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"success":false`, `"success":true`, 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0644))

	ok, bad, err := log.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, bad)
}

func TestEmptyLog(t *testing.T) {
	log, err := Open(t.TempDir())
	require.NoError(t, err)

	records, err := log.All()
	require.NoError(t, err)
	assert.Empty(t, records)

	ok, bad, err := log.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, bad)
}
