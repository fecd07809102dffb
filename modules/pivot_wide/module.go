// Package pivot_wide provides the grapher-stage runner that pivots a long
// (entity, year, variable, value) table into wide form with one column per
// variable.
package pivot_wide

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/paths"
	"github.com/vk/catwalk/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Dataset        string `hcl:"dataset"`
	Table          string `hcl:"table"`
	EntityColumn   string `hcl:"entity_column,optional"`
	YearColumn     string `hcl:"year_column,optional"`
	VariableColumn string `hcl:"variable_column,optional"`
	ValueColumn    string `hcl:"value_column,optional"`
}

// OnRunPivotWide pivots the upstream long table into wide form keyed by
// (entity, year) and saves it as the step's dataset.
func OnRunPivotWide(ctx context.Context, pf *paths.PathFinder, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("step", pf.ID().String())

	upstream, err := pf.LoadDataset(ctx, input.Dataset)
	if err != nil {
		return err
	}
	long, err := upstream.Table(input.Table)
	if err != nil {
		return err
	}

	entityCol := defaulted(input.EntityColumn, "country")
	yearCol := defaulted(input.YearColumn, "year")
	variableCol := defaulted(input.VariableColumn, "variable")
	valueCol := defaulted(input.ValueColumn, "value")

	indices := make(map[string]int, 4)
	for _, name := range []string{entityCol, yearCol, variableCol, valueCol} {
		idx := long.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("table %s: pivot column %q does not exist", long.Name, name)
		}
		indices[name] = idx
	}

	// Collect the distinct variables and the value per (entity, year, variable).
	type key struct{ entity, year string }
	variableSet := make(map[string]struct{})
	cells := make(map[key]map[string]string)
	var keyOrder []key
	for _, row := range long.Rows {
		k := key{entity: row[indices[entityCol]], year: row[indices[yearCol]]}
		variable := row[indices[variableCol]]
		variableSet[variable] = struct{}{}

		if _, ok := cells[k]; !ok {
			cells[k] = make(map[string]string)
			keyOrder = append(keyOrder, k)
		}
		if _, dup := cells[k][variable]; dup {
			return fmt.Errorf("table %s: duplicate value for (%s, %s, %s)", long.Name, k.entity, k.year, variable)
		}
		cells[k][variable] = row[indices[valueCol]]
	}

	variables := make([]string, 0, len(variableSet))
	for v := range variableSet {
		variables = append(variables, v)
	}
	sort.Strings(variables)

	columns := []catalog.Column{{Name: entityCol}, {Name: yearCol}}
	for _, v := range variables {
		columns = append(columns, catalog.Column{Name: v})
	}
	wide := catalog.NewTable(long.Name, columns...)
	wide.Title = long.Title
	wide.Description = long.Description

	for _, k := range keyOrder {
		row := make([]string, 0, len(columns))
		row = append(row, k.entity, k.year)
		for _, v := range variables {
			row = append(row, cells[k][v])
		}
		if err := wide.AddRow(row...); err != nil {
			return err
		}
	}
	if err := wide.SetPrimaryKey(entityCol, yearCol); err != nil {
		return err
	}

	logger.Debug("Pivoted table to wide form.", "variables", len(variables), "rows", len(wide.Rows))

	ds, err := pf.NewDataset([]*catalog.Table{wide}, upstream.Meta)
	if err != nil {
		return err
	}
	return ds.Save(ctx)
}

func defaulted(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunPivotWide", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunPivotWide,
	})
}
