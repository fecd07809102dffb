package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/stepid"
	"github.com/vk/catwalk/internal/testutil"
)

// TestCliBehavior_DryRunPrintsPlanWithoutExecuting validates that a dry run
// reports every step's verdict but commits nothing.
func TestCliBehavior_DryRunPrintsPlanWithoutExecuting(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, chainFiles(), emitModule())
	result := h.Run(context.Background(), testutil.RunOptions{DryRun: true})
	require.NoError(t, result.Err)

	assert.Contains(t, result.LogOutput, "stale    data://meadow/demo/2024-01-01/a")
	assert.Contains(t, result.LogOutput, "stale    data://grapher/demo/2024-01-01/c")
	assert.Contains(t, result.LogOutput, "4 stale, 0 cached")
	assert.NotContains(t, result.LogOutput, "▶️ Starting step")

	id, err := stepid.Parse("data://meadow/demo/2024-01-01/a")
	require.NoError(t, err)
	assert.False(t, h.Catalog().Has(id), "dry run must not commit datasets")
}

// TestCliBehavior_DryRunReportsCachedSteps validates the verdict column after
// a real run.
func TestCliBehavior_DryRunReportsCachedSteps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := testutil.NewHarness(t, chainFiles(), emitModule())
	first := h.Run(ctx, testutil.RunOptions{})
	require.NoError(t, first.Err, "first run failed:\n%s", first.LogOutput)

	dry := h.Run(ctx, testutil.RunOptions{DryRun: true})
	require.NoError(t, dry.Err)
	assert.Contains(t, dry.LogOutput, "cached   data://garden/demo/2024-01-01/b")
	assert.Contains(t, dry.LogOutput, "0 stale, 4 cached")
}

// TestCliBehavior_SelectNarrowsTheRun validates that a selector runs only the
// matching steps plus their upstream dependencies.
func TestCliBehavior_SelectNarrowsTheRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := testutil.NewHarness(t, chainFiles(), emitModule())
	result := h.Run(ctx, testutil.RunOptions{Select: "garden"})
	require.NoError(t, result.Err, "run failed:\n%s", result.LogOutput)
	assert.Contains(t, result.LogOutput, "Narrowed run to selected steps.")

	store := h.Catalog()
	for uri, want := range map[string]bool{
		"data://meadow/demo/2024-01-01/a":  true,
		"data://garden/demo/2024-01-01/b":  true,
		"data://grapher/demo/2024-01-01/c": false,
		"data://meadow/demo/2024-01-01/d":  false,
	} {
		id, err := stepid.Parse(uri)
		require.NoError(t, err)
		assert.Equal(t, want, store.Has(id), "unexpected catalog state for %s", uri)
	}
}

// TestCliBehavior_SelectWithNoMatchesDoesNothing validates that an unmatched
// selector exits cleanly without a run.
func TestCliBehavior_SelectWithNoMatchesDoesNothing(t *testing.T) {
	t.Parallel()

	h := testutil.NewHarness(t, chainFiles(), emitModule())
	result := h.Run(context.Background(), testutil.RunOptions{Select: "nonexistent"})
	require.NoError(t, result.Err)
	assert.Contains(t, result.LogOutput, "No nodes found in graph, execution not required.")
}
