// Package csv_table provides the meadow-stage runner that parses a raw
// snapshot CSV into a single-table dataset.
package csv_table

import (
	"context"
	"fmt"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/paths"
	"github.com/vk/catwalk/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Snapshot   string   `hcl:"snapshot"`
	TableName  string   `hcl:"table_name"`
	PrimaryKey []string `hcl:"primary_key"`
	Keep       []string `hcl:"keep,optional"`
}

// OnRunCsvTable parses the declared snapshot into a table and saves it as the
// step's dataset, propagating the snapshot's provenance metadata.
func OnRunCsvTable(ctx context.Context, pf *paths.PathFinder, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("step", pf.ID().String())

	snap, err := pf.LoadSnapshot(ctx, input.Snapshot)
	if err != nil {
		return err
	}

	file, err := snap.Open()
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", snap.ID, err)
	}
	defer file.Close()

	table := catalog.NewTable(input.TableName)
	if err := table.ReadCSV(file); err != nil {
		return err
	}
	logger.Debug("Parsed snapshot CSV.", "rows", len(table.Rows), "columns", len(table.Columns))

	if len(input.Keep) > 0 {
		if err := table.KeepColumns(input.Keep...); err != nil {
			return err
		}
	}
	if err := table.SetPrimaryKey(input.PrimaryKey...); err != nil {
		return err
	}

	ds, err := pf.NewDataset([]*catalog.Table{table}, snap.Meta.DatasetMeta())
	if err != nil {
		return err
	}
	return ds.Save(ctx)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunCsvTable", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunCsvTable,
	})
}
