// Package harmonize provides the garden-stage runner: column renames, unit
// scaling, and entity-name harmonization over one upstream table.
package harmonize

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/paths"
	"github.com/vk/catwalk/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Dataset      string             `hcl:"dataset"`
	Table        string             `hcl:"table"`
	Renames      map[string]string  `hcl:"renames,optional"`
	Scale        map[string]float64 `hcl:"scale,optional"`
	Entities     map[string]string  `hcl:"entities,optional"`
	EntityColumn string             `hcl:"entity_column,optional"`
	Keep         []string           `hcl:"keep,optional"`
}

// OnRunHarmonize loads the declared upstream table, applies renames, unit
// scaling, and entity harmonization, and saves the result with the upstream
// dataset's provenance carried over.
func OnRunHarmonize(ctx context.Context, pf *paths.PathFinder, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("step", pf.ID().String())

	upstream, err := pf.LoadDataset(ctx, input.Dataset)
	if err != nil {
		return err
	}
	table, err := upstream.Table(input.Table)
	if err != nil {
		return err
	}

	if len(input.Renames) > 0 {
		if err := table.Rename(input.Renames); err != nil {
			return err
		}
	}

	for column, factor := range input.Scale {
		if err := scaleColumn(table, column, factor); err != nil {
			return err
		}
	}

	if len(input.Entities) > 0 {
		entityColumn := input.EntityColumn
		if entityColumn == "" {
			entityColumn = "country"
		}
		if err := harmonizeEntities(table, entityColumn, input.Entities); err != nil {
			return err
		}
	}

	if len(input.Keep) > 0 {
		if err := table.KeepColumns(input.Keep...); err != nil {
			return err
		}
	}

	logger.Debug("Harmonized table.", "table", table.Name, "rows", len(table.Rows))

	ds, err := pf.NewDataset([]*catalog.Table{table}, upstream.Meta)
	if err != nil {
		return err
	}
	return ds.Save(ctx)
}

// scaleColumn multiplies every numeric cell of a column by the given factor.
// Empty cells pass through untouched.
func scaleColumn(table *catalog.Table, column string, factor float64) error {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return fmt.Errorf("table %s: cannot scale missing column %q", table.Name, column)
	}

	for rowNum, row := range table.Rows {
		if row[idx] == "" {
			continue
		}
		value, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return fmt.Errorf("table %s: column %q row %d: %w", table.Name, column, rowNum, err)
		}
		row[idx] = strconv.FormatFloat(value*factor, 'g', -1, 64)
	}
	return nil
}

// harmonizeEntities rewrites entity names using the provided mapping. Names
// absent from the mapping are kept as-is.
func harmonizeEntities(table *catalog.Table, entityColumn string, mapping map[string]string) error {
	idx := table.ColumnIndex(entityColumn)
	if idx < 0 {
		return fmt.Errorf("table %s: entity column %q does not exist", table.Name, entityColumn)
	}

	for _, row := range table.Rows {
		if canonical, ok := mapping[row[idx]]; ok {
			row[idx] = canonical
		}
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunHarmonize", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunHarmonize,
	})
}
