package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/state"
	"github.com/vk/catwalk/internal/testutil"
)

// TestCoreExecution_RunHistoryIsRecorded validates that runs and per-step
// outcomes land in the state database.
func TestCoreExecution_RunHistoryIsRecorded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	files := map[string]string{
		"modules/emit/manifest.hcl": emitManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2024-01-01/source" {
  runner = "emit"
  arguments {
    value = "base"
  }
}
`,
	}

	h := testutil.NewHarness(t, files, emitModule())
	result := h.Run(ctx, testutil.RunOptions{})
	require.NoError(t, result.Err, "run failed:\n%s", result.LogOutput)

	store, err := state.Open(h.Config.StateDBPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunSucceeded, runs[0].Status)
	assert.False(t, runs[0].FinishedAt.IsZero())

	last, err := store.LastStepOutcome(ctx, "data://meadow/demo/2024-01-01/source")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, runs[0].ID, last.RunID)
	assert.Equal(t, state.StepSucceeded, last.State)
	assert.Equal(t, 1, last.Attempts)
	assert.NotEmpty(t, last.Checksum)
}
