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

const deriveManifestHCL = `
runner "derive" {
  lifecycle { on_run = "OnRunDerive" }
  input "dataset" {
    type = string
  }
  input "suffix" {
    type = string
  }
}
`

type emitInput struct {
	Value string `hcl:"value"`
}

// emitModule registers a source runner that saves a one-row dataset holding
// its configured value.
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

type deriveInput struct {
	Dataset string `hcl:"dataset"`
	Suffix  string `hcl:"suffix"`
}

// deriveModule registers a runner that appends a suffix to every value of its
// upstream dataset and saves the result.
func deriveModule() *testutil.SimpleModule {
	return &testutil.SimpleModule{
		RunnerName: "OnRunDerive",
		Runner: &registry.RegisteredRunner{
			NewInput: func() any { return new(deriveInput) },
			Fn: func(ctx context.Context, pf *paths.PathFinder, input *deriveInput) error {
				upstream, err := pf.LoadDataset(ctx, input.Dataset)
				if err != nil {
					return err
				}
				source, err := upstream.Table("data")
				if err != nil {
					return err
				}

				table := catalog.NewTable("data", catalog.Column{Name: "key"}, catalog.Column{Name: "value"})
				valueIdx := source.ColumnIndex("value")
				keyIdx := source.ColumnIndex("key")
				for _, row := range source.Rows {
					if err := table.AddRow(row[keyIdx], row[valueIdx]+input.Suffix); err != nil {
						return err
					}
				}
				if err := table.SetPrimaryKey("key"); err != nil {
					return err
				}
				ds, err := pf.NewDataset([]*catalog.Table{table}, upstream.Meta)
				if err != nil {
					return err
				}
				return ds.Save(ctx)
			},
		},
	}
}
