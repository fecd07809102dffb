package integration_tests

import (
	"context"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/paths"
	"github.com/vk/catwalk/internal/registry"
	"github.com/vk/catwalk/internal/testutil"
)

const emitManifestHCL = `
runner "emit" {
  lifecycle { on_run = "OnRunEmit" }
  input "value" {
    type = string
  }
}
`

type emitInput struct {
	Value string `hcl:"value"`
}

func emitModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		RunnerName: "OnRunEmit",
		Runner: &registry.RegisteredRunner{
			NewInput: func() any { return new(emitInput) },
			Fn: func(ctx context.Context, pf *paths.PathFinder, input *emitInput) error {
				table := catalog.NewTable("data", catalog.Column{Name: "key"}, catalog.Column{Name: "value"})
				if err := table.AddRow("k", input.Value); err != nil {
					return err
				}
				if err := table.SetPrimaryKey("key"); err != nil {
					return err
				}
				ds, err := pf.NewDataset([]*catalog.Table{table}, catalog.DatasetMeta{})
				if err != nil {
					return err
				}
				return ds.Save(ctx)
			},
		},
	}
}

// chainFiles declares a three-step chain a -> b -> c plus an unrelated step d.
func chainFiles() map[string]string {
	return map[string]string{
		"modules/emit/manifest.hcl": emitManifestHCL,
		"dag/main.hcl": `
step "meadow" "demo/2024-01-01/a" {
  runner = "emit"
  arguments {
    value = "a"
  }
}

step "garden" "demo/2024-01-01/b" {
  runner     = "emit"
  depends_on = ["data://meadow/demo/2024-01-01/a"]
  arguments {
    value = "b"
  }
}

step "grapher" "demo/2024-01-01/c" {
  runner     = "emit"
  depends_on = ["data://garden/demo/2024-01-01/b"]
  arguments {
    value = "c"
  }
}

step "meadow" "demo/2024-01-01/d" {
  runner = "emit"
  arguments {
    value = "d"
  }
}
`,
	}
}
