package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/state"
	"github.com/vk/catwalk/internal/stepid"
	"github.com/vk/catwalk/internal/testutil"
)

// TestErrorHandling_FailedStepSkipsDependents validates that a step failure
// surfaces the root cause and marks every downstream step as skipped.
func TestErrorHandling_FailedStepSkipsDependents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	files := map[string]string{
		"modules/emit/manifest.hcl": emitManifestHCL,
		"modules/fail/manifest.hcl": failManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2024-01-01/broken" {
  runner = "fail"
}

step "garden" "demo/2024-01-01/downstream" {
  runner     = "emit"
  depends_on = ["data://meadow/demo/2024-01-01/broken"]
  arguments {
    value = "never"
  }
}
`,
	}

	h := testutil.NewHarness(t, files, emitModule(), failModule())
	result := h.Run(ctx, testutil.RunOptions{})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "handler exploded")
	assert.Contains(t, result.Err.Error(), "data://meadow/demo/2024-01-01/broken")
	assert.Contains(t, result.LogOutput, "Skipping dependent node due to upstream failure.")

	downstreamID, err := stepid.Parse("data://garden/demo/2024-01-01/downstream")
	require.NoError(t, err)
	assert.False(t, h.Catalog().Has(downstreamID), "skipped step must not commit a dataset")

	// The run history records the failure and the skip.
	store, err := state.Open(h.Config.StateDBPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunFailed, runs[0].Status)

	failed, err := store.LastStepOutcome(ctx, "data://meadow/demo/2024-01-01/broken")
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, state.StepFailed, failed.State)

	skipped, err := store.LastStepOutcome(ctx, "data://garden/demo/2024-01-01/downstream")
	require.NoError(t, err)
	require.NotNil(t, skipped)
	assert.Equal(t, state.StepSkipped, skipped.State)
}

// TestErrorHandling_RetriesBeforeFailing validates the attempts knob: a
// persistently failing step is retried the configured number of times.
func TestErrorHandling_RetriesBeforeFailing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	files := map[string]string{
		"modules/fail/manifest.hcl": failManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2024-01-01/broken" {
  runner = "fail"
}
`,
	}

	h := testutil.NewHarness(t, files, failModule())
	h.Config.Attempts = 3

	result := h.Run(ctx, testutil.RunOptions{})
	require.Error(t, result.Err)
	assert.Contains(t, result.LogOutput, "Retrying step after failure.")

	store, err := state.Open(h.Config.StateDBPath)
	require.NoError(t, err)
	defer store.Close()

	outcome, err := store.LastStepOutcome(ctx, "data://meadow/demo/2024-01-01/broken")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, 3, outcome.Attempts)
}

// TestErrorHandling_HandlerMustSaveItsDataset validates the save contract: a
// handler returning success without committing its dataset fails the step.
func TestErrorHandling_HandlerMustSaveItsDataset(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"modules/forgetful/manifest.hcl": forgetfulManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2024-01-01/ghost" {
  runner = "forgetful"
}
`,
	}

	h := testutil.NewHarness(t, files, forgetfulModule())
	result := h.Run(context.Background(), testutil.RunOptions{})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "completed without saving its dataset")
}
