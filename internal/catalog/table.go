package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Column is one named column of a table plus its metadata.
type Column struct {
	Name string     `json:"name"`
	Meta ColumnMeta `json:"meta,omitempty"`
}

// Table is a named tabular structure with string cells, an ordered column
// list, and a primary key. The primary key must be unique across rows; this
// is verified before a table is ever written to the catalog.
type Table struct {
	Name        string
	Title       string
	Description string
	PrimaryKey  []string
	Columns     []Column
	Rows        [][]string
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// ColumnIndex returns the position of a named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the ordered column names.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AddRow appends one row. The number of values must match the column count.
func (t *Table) AddRow(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// SetPrimaryKey declares the index columns. Every named column must exist.
func (t *Table) SetPrimaryKey(columns ...string) error {
	for _, name := range columns {
		if t.ColumnIndex(name) < 0 {
			return fmt.Errorf("table %s: primary key column %q does not exist", t.Name, name)
		}
	}
	t.PrimaryKey = columns
	return nil
}

// VerifyPrimaryKey checks the table's core invariant: a non-empty primary key
// whose value combinations are unique across all rows.
func (t *Table) VerifyPrimaryKey() error {
	if len(t.PrimaryKey) == 0 {
		return fmt.Errorf("table %s: no primary key set", t.Name)
	}

	indices := make([]int, len(t.PrimaryKey))
	for i, name := range t.PrimaryKey {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("table %s: primary key column %q does not exist", t.Name, name)
		}
		indices[i] = idx
	}

	seen := make(map[string]int, len(t.Rows))
	for rowNum, row := range t.Rows {
		parts := make([]string, len(indices))
		for i, idx := range indices {
			parts[i] = row[idx]
		}
		key := strings.Join(parts, "\x1f")
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("table %s: duplicate primary key (%s) at rows %d and %d",
				t.Name, strings.Join(parts, ", "), prev, rowNum)
		}
		seen[key] = rowNum
	}

	return nil
}

// Rename renames columns according to the given old-to-new mapping. Renaming
// a column that does not exist is an error; primary key references follow.
func (t *Table) Rename(renames map[string]string) error {
	for old, new_ := range renames {
		idx := t.ColumnIndex(old)
		if idx < 0 {
			return fmt.Errorf("table %s: cannot rename missing column %q", t.Name, old)
		}
		if t.ColumnIndex(new_) >= 0 {
			return fmt.Errorf("table %s: rename target %q already exists", t.Name, new_)
		}
		t.Columns[idx].Name = new_
		for i, pk := range t.PrimaryKey {
			if pk == old {
				t.PrimaryKey[i] = new_
			}
		}
	}
	return nil
}

// KeepColumns drops every column not in the given list, preserving the
// requested order. Primary key columns must be kept.
func (t *Table) KeepColumns(names ...string) error {
	indices := make([]int, len(names))
	for i, name := range names {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("table %s: cannot keep missing column %q", t.Name, name)
		}
		indices[i] = idx
	}
	for _, pk := range t.PrimaryKey {
		if !containsString(names, pk) {
			return fmt.Errorf("table %s: primary key column %q cannot be dropped", t.Name, pk)
		}
	}

	columns := make([]Column, len(indices))
	for i, idx := range indices {
		columns[i] = t.Columns[idx]
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		next := make([]string, len(indices))
		for i, idx := range indices {
			next[i] = row[idx]
		}
		rows[r] = next
	}

	t.Columns = columns
	t.Rows = rows
	return nil
}

// SortRows orders rows by the primary key columns, giving the table a
// canonical on-disk form.
func (t *Table) SortRows() {
	indices := make([]int, 0, len(t.PrimaryKey))
	for _, name := range t.PrimaryKey {
		if idx := t.ColumnIndex(name); idx >= 0 {
			indices = append(indices, idx)
		}
	}
	if len(indices) == 0 {
		return
	}

	sort.SliceStable(t.Rows, func(a, b int) bool {
		for _, idx := range indices {
			if t.Rows[a][idx] != t.Rows[b][idx] {
				return t.Rows[a][idx] < t.Rows[b][idx]
			}
		}
		return false
	})
}

// WriteCSV writes the table as CSV with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("table %s: writing header: %w", t.Name, err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("table %s: writing row: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV replaces the table's columns and rows from CSV data. Column
// metadata for names that survive the read is preserved.
func (t *Table) ReadCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("table %s: reading csv: %w", t.Name, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("table %s: csv has no header row", t.Name)
	}

	oldMeta := make(map[string]ColumnMeta, len(t.Columns))
	for _, c := range t.Columns {
		oldMeta[c.Name] = c.Meta
	}

	t.Columns = make([]Column, len(records[0]))
	for i, name := range records[0] {
		t.Columns[i] = Column{Name: name, Meta: oldMeta[name]}
	}
	t.Rows = records[1:]
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
