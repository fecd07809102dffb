package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/paths"
	"github.com/vk/catwalk/internal/stepid"
)

func saveDataset(t *testing.T, store *catalog.Store, uri string, origin catalog.Origin, tables ...*catalog.Table) stepid.ID {
	t.Helper()

	id, err := stepid.Parse(uri)
	require.NoError(t, err)
	ds := catalog.NewDataset(id, catalog.DatasetMeta{Origins: []catalog.Origin{origin}}, store, "sum-"+id.ShortName)
	for _, table := range tables {
		require.NoError(t, ds.AddTable(table))
	}
	require.NoError(t, ds.Save(context.Background()))
	return id
}

func makeTable(t *testing.T, name string, rows int) *catalog.Table {
	t.Helper()

	table := catalog.NewTable(name, catalog.Column{Name: "key"}, catalog.Column{Name: "value"})
	for i := 0; i < rows; i++ {
		require.NoError(t, table.AddRow(string(rune('a'+i)), "v"))
	}
	require.NoError(t, table.SetPrimaryKey("key"))
	return table
}

func TestOnRunReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := catalog.NewStore(t.TempDir())
	require.NoError(t, err)

	energyID := saveDataset(t, store, "data://garden/energy/2024-06-20/energy",
		catalog.Origin{Producer: "Energy Institute"},
		makeTable(t, "mix", 3), makeTable(t, "totals", 1))
	popID := saveDataset(t, store, "data://garden/demo/2024-06-20/population",
		catalog.Origin{Producer: "UN"},
		makeTable(t, "population", 2))

	reportID, err := stepid.Parse("data://explorer/demo/2024-06-20/overview")
	require.NoError(t, err)
	pf := paths.New(reportID, []stepid.Ref{{Dataset: &energyID}, {Dataset: &popID}}, store, nil, "report-sum")

	require.NoError(t, OnRunReport(ctx, pf, &Input{
		Datasets: []string{"energy", "population"},
		Title:    "Demo overview",
	}))

	ds, err := store.Load(ctx, reportID)
	require.NoError(t, err)
	assert.Equal(t, "Demo overview", ds.Meta.Title)
	// Origins from every reported dataset are merged.
	assert.Len(t, ds.Meta.Origins, 2)

	summary, err := ds.Table("summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"dataset", "table", "columns", "rows"}, summary.ColumnNames())
	assert.Equal(t, [][]string{
		{"energy", "mix", "2", "3"},
		{"energy", "totals", "2", "1"},
		{"population", "population", "2", "2"},
	}, summary.Rows)
}

func TestOnRunReportUndeclaredDataset(t *testing.T) {
	t.Parallel()

	store, err := catalog.NewStore(t.TempDir())
	require.NoError(t, err)

	reportID, err := stepid.Parse("data://explorer/demo/2024-06-20/overview")
	require.NoError(t, err)
	pf := paths.New(reportID, nil, store, nil, "sum")

	err = OnRunReport(context.Background(), pf, &Input{Datasets: []string{"energy"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a declared dependency")
}
