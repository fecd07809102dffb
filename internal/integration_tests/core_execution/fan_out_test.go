package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/stepid"
	"github.com/vk/catwalk/internal/testutil"
)

// TestCoreExecution_FanOut validates that one producing step can feed several
// independent dependents and every branch commits its dataset.
func TestCoreExecution_FanOut(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"modules/emit/manifest.hcl":   emitManifestHCL,
		"modules/derive/manifest.hcl": deriveManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2024-01-01/source" {
  runner = "emit"
  arguments {
    value = "base"
  }
}

step "garden" "demo/2024-01-01/left" {
  runner     = "derive"
  depends_on = ["data://meadow/demo/2024-01-01/source"]
  arguments {
    dataset = "source"
    suffix  = "-left"
  }
}

step "garden" "demo/2024-01-01/right" {
  runner     = "derive"
  depends_on = ["data://meadow/demo/2024-01-01/source"]
  arguments {
    dataset = "source"
    suffix  = "-right"
  }
}
`,
	}

	h := testutil.NewHarness(t, files, emitModule(), deriveModule())
	result := h.Run(context.Background(), testutil.RunOptions{})
	require.NoError(t, result.Err, "run failed:\n%s", result.LogOutput)

	store := h.Catalog()
	for _, tc := range []struct {
		uri   string
		value string
	}{
		{uri: "data://garden/demo/2024-01-01/left", value: "base-left"},
		{uri: "data://garden/demo/2024-01-01/right", value: "base-right"},
	} {
		id, err := stepid.Parse(tc.uri)
		require.NoError(t, err)
		require.True(t, store.Has(id), "missing dataset %s", tc.uri)

		ds, err := store.Load(context.Background(), id)
		require.NoError(t, err)
		table, err := ds.Table("data")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"k", tc.value}}, table.Rows)
	}
}

// TestCoreExecution_LatestDependencyPinsToNewestVersion validates floating
// data dependencies against two declared versions of the same dataset.
func TestCoreExecution_LatestDependencyPinsToNewestVersion(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"modules/emit/manifest.hcl":   emitManifestHCL,
		"modules/derive/manifest.hcl": deriveManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2023-01-01/source" {
  runner = "emit"
  arguments {
    value = "old"
  }
}

step "meadow" "demo/2024-06-20/source" {
  runner = "emit"
  arguments {
    value = "new"
  }
}

step "garden" "demo/2024-06-20/result" {
  runner     = "derive"
  depends_on = ["data://meadow/demo/latest/source"]
  arguments {
    dataset = "source"
    suffix  = "!"
  }
}
`,
	}

	h := testutil.NewHarness(t, files, emitModule(), deriveModule())
	result := h.Run(context.Background(), testutil.RunOptions{})
	require.NoError(t, result.Err, "run failed:\n%s", result.LogOutput)

	id, err := stepid.Parse("data://garden/demo/2024-06-20/result")
	require.NoError(t, err)
	ds, err := h.Catalog().Load(context.Background(), id)
	require.NoError(t, err)
	table, err := ds.Table("data")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"k", "new!"}}, table.Rows, "latest must read the newest declared version")
}
