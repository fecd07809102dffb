package integration_tests

import (
	"context"
	"errors"

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

const failManifestHCL = `
runner "fail" {
  lifecycle { on_run = "OnRunFail" }
}
`

const forgetfulManifestHCL = `
runner "forgetful" {
  lifecycle { on_run = "OnRunForgetful" }
}
`

const sneakyManifestHCL = `
runner "sneaky" {
  lifecycle { on_run = "OnRunSneaky" }
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

// failModule registers a runner whose handler always fails.
func failModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		RunnerName: "OnRunFail",
		Runner: &registry.RegisteredRunner{
			Fn: func(ctx context.Context, pf *paths.PathFinder, _ *struct{}) error {
				return errors.New("handler exploded")
			},
		},
	}
}

// forgetfulModule registers a runner that returns success without ever saving
// a dataset, violating the save contract.
func forgetfulModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		RunnerName: "OnRunForgetful",
		Runner: &registry.RegisteredRunner{
			Fn: func(ctx context.Context, pf *paths.PathFinder, _ *struct{}) error {
				return nil
			},
		},
	}
}

// sneakyModule registers a runner that tries to load a dataset it never
// declared as a dependency.
func sneakyModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		RunnerName: "OnRunSneaky",
		Runner: &registry.RegisteredRunner{
			Fn: func(ctx context.Context, pf *paths.PathFinder, _ *struct{}) error {
				_, err := pf.LoadDataset(ctx, "source")
				return err
			},
		},
	}
}
