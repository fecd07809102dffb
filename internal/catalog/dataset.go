package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/catwalk/internal/stepid"
)

// Dataset is a named, versioned bundle of tables plus shared metadata. It is
// produced by exactly one step and read by any number of downstream steps.
//
// A dataset is in one of two modes: write mode (created by a running step,
// tables held in memory until Save) or read mode (loaded from the catalog,
// tables read lazily from disk).
type Dataset struct {
	ID   stepid.ID
	Meta DatasetMeta

	store          *Store
	sourceChecksum string

	// tables holds in-memory tables in write mode and acts as a read cache
	// in read mode.
	tables     map[string]*Table
	tableOrder []string

	// index is non-nil in read mode.
	index *datasetIndex
	saved bool
}

// NewDataset creates an empty write-mode dataset bound to a store. The source
// checksum is recorded at save time and later drives staleness decisions.
func NewDataset(id stepid.ID, meta DatasetMeta, store *Store, sourceChecksum string) *Dataset {
	return &Dataset{
		ID:             id,
		Meta:           meta,
		store:          store,
		sourceChecksum: sourceChecksum,
		tables:         make(map[string]*Table),
	}
}

// SourceChecksum returns the input checksum the dataset was (or will be)
// saved with.
func (d *Dataset) SourceChecksum() string {
	return d.sourceChecksum
}

// AddTable adds a table to a write-mode dataset. Table names must be unique.
func (d *Dataset) AddTable(t *Table) error {
	if d.saved {
		return fmt.Errorf("dataset %s: cannot add table after save", d.ID)
	}
	if d.index != nil {
		return fmt.Errorf("dataset %s: loaded datasets are read-only", d.ID)
	}
	if t.Name == "" {
		return fmt.Errorf("dataset %s: table has no name", d.ID)
	}
	if _, exists := d.tables[t.Name]; exists {
		return fmt.Errorf("dataset %s: duplicate table %q", d.ID, t.Name)
	}
	d.tables[t.Name] = t
	d.tableOrder = append(d.tableOrder, t.Name)
	return nil
}

// TableNames returns the dataset's table names in stable order.
func (d *Dataset) TableNames() []string {
	if d.index != nil {
		names := make([]string, len(d.index.Tables))
		for i, entry := range d.index.Tables {
			names[i] = entry.Name
		}
		return names
	}
	names := make([]string, len(d.tableOrder))
	copy(names, d.tableOrder)
	sort.Strings(names)
	return names
}

// Table returns a table by name, reading it from disk on first access in
// read mode.
func (d *Dataset) Table(name string) (*Table, error) {
	if t, ok := d.tables[name]; ok {
		return t, nil
	}
	if d.index == nil {
		return nil, fmt.Errorf("dataset %s: no table %q", d.ID, name)
	}

	t, err := d.store.readTable(d.ID, d.index, name)
	if err != nil {
		return nil, err
	}
	d.tables[name] = t
	return t, nil
}

// Save commits the dataset to the catalog. Every table must pass its
// primary-key integrity check; rows are sorted into canonical order before
// writing. Saving twice is an error, as is saving a loaded dataset.
func (d *Dataset) Save(ctx context.Context) error {
	if d.saved {
		return fmt.Errorf("dataset %s: already saved", d.ID)
	}
	if d.index != nil {
		return fmt.Errorf("dataset %s: loaded datasets are read-only", d.ID)
	}
	if len(d.tables) == 0 {
		return fmt.Errorf("dataset %s: cannot save a dataset with no tables", d.ID)
	}

	for _, name := range d.tableOrder {
		t := d.tables[name]
		if err := t.VerifyPrimaryKey(); err != nil {
			return fmt.Errorf("dataset %s: %w", d.ID, err)
		}
		t.SortRows()
	}

	if err := d.store.save(ctx, d); err != nil {
		return err
	}
	d.saved = true
	return nil
}
