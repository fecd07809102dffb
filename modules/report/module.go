// Package report provides the explorer-stage runner that summarizes its
// upstream datasets into a single summary table.
package report

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
	Datasets []string `hcl:"datasets"`
	Title    string   `hcl:"title,optional"`
}

// OnRunReport loads each declared upstream dataset, logs a per-table summary
// and saves the summary as a dataset of its own.
func OnRunReport(ctx context.Context, pf *paths.PathFinder, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("step", pf.ID().String())

	summary := catalog.NewTable("summary",
		catalog.Column{Name: "dataset"},
		catalog.Column{Name: "table"},
		catalog.Column{Name: "columns"},
		catalog.Column{Name: "rows"},
	)
	title := input.Title
	if title == "" {
		title = "Catalog report"
	}
	summary.Title = title

	meta := catalog.DatasetMeta{Title: title}
	for _, shortName := range input.Datasets {
		ds, err := pf.LoadDataset(ctx, shortName)
		if err != nil {
			return err
		}
		meta.MergeOrigins(ds.Meta)

		for _, tableName := range ds.TableNames() {
			table, err := ds.Table(tableName)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", shortName, err)
			}
			logger.Info("📊 Report entry.",
				"dataset", shortName,
				"table", tableName,
				"columns", len(table.Columns),
				"rows", len(table.Rows))
			if err := summary.AddRow(
				shortName,
				tableName,
				strconv.Itoa(len(table.Columns)),
				strconv.Itoa(len(table.Rows)),
			); err != nil {
				return err
			}
		}
	}
	if err := summary.SetPrimaryKey("dataset", "table"); err != nil {
		return err
	}

	ds, err := pf.NewDataset([]*catalog.Table{summary}, meta)
	if err != nil {
		return err
	}
	return ds.Save(ctx)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunReport", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunReport,
	})
}
