package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/stepid"
)

func testStepID(t *testing.T) stepid.ID {
	t.Helper()
	id, err := stepid.Parse("data://garden/energy/2024-06-20/primary_energy")
	require.NoError(t, err)
	return id
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	id := testStepID(t)

	meta := DatasetMeta{
		Title:   "Primary energy",
		Origins: []Origin{{Producer: "Energy Institute", Title: "Statistical Review"}},
	}
	ds := NewDataset(id, meta, store, "checksum-abc")
	require.NoError(t, ds.AddTable(makeTestTable(t)))
	require.NoError(t, ds.Save(ctx))

	assert.True(t, store.Has(id))
	assert.Equal(t, "checksum-abc", store.SourceChecksum(id))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, meta, loaded.Meta)
	assert.Equal(t, []string{"primary_energy"}, loaded.TableNames())

	table, err := loaded.Table("primary_energy")
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "year", "energy_ej"}, table.ColumnNames())
	assert.Equal(t, []string{"country", "year"}, table.PrimaryKey)
	// Save sorts rows into canonical order.
	assert.Equal(t, [][]string{
		{"deu", "2020", "12.1"},
		{"fra", "2020", "9.1"},
		{"fra", "2021", "9.4"},
	}, table.Rows)
	assert.Equal(t, "EJ", table.Columns[table.ColumnIndex("energy_ej")].Meta.Unit)
}

func TestSaveRejectsEmptyDataset(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ds := NewDataset(testStepID(t), DatasetMeta{}, store, "sum")
	err = ds.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables")
}

func TestSaveRejectsBrokenPrimaryKey(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	table := NewTable("t", Column{Name: "a"})
	require.NoError(t, table.AddRow("1"))
	require.NoError(t, table.AddRow("1"))
	require.NoError(t, table.SetPrimaryKey("a"))

	ds := NewDataset(testStepID(t), DatasetMeta{}, store, "sum")
	require.NoError(t, ds.AddTable(table))
	err = ds.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate primary key")
	assert.False(t, store.Has(testStepID(t)), "a failed save must not leave a dataset behind")
}

func TestSaveTwiceFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ds := NewDataset(testStepID(t), DatasetMeta{}, store, "sum")
	require.NoError(t, ds.AddTable(makeTestTable(t)))
	require.NoError(t, ds.Save(ctx))

	err = ds.Save(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already saved")
}

func TestLoadedDatasetsAreReadOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	id := testStepID(t)

	ds := NewDataset(id, DatasetMeta{}, store, "sum")
	require.NoError(t, ds.AddTable(makeTestTable(t)))
	require.NoError(t, ds.Save(ctx))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)

	err = loaded.AddTable(makeTestTable(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	err = loaded.Save(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestSaveReplacesPreviousVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	id := testStepID(t)

	first := NewDataset(id, DatasetMeta{}, store, "sum-1")
	require.NoError(t, first.AddTable(makeTestTable(t)))
	require.NoError(t, first.Save(ctx))

	second := NewDataset(id, DatasetMeta{}, store, "sum-2")
	other := NewTable("other", Column{Name: "k"})
	require.NoError(t, other.AddRow("v"))
	require.NoError(t, other.SetPrimaryKey("k"))
	require.NoError(t, second.AddTable(other))
	require.NoError(t, second.Save(ctx))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sum-2", store.SourceChecksum(id))
	assert.Equal(t, []string{"other"}, loaded.TableNames(), "old tables must not leak into the replacement")
}

func TestSourceChecksumMissingDataset(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", store.SourceChecksum(testStepID(t)))
}
