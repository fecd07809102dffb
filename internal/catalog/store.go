package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/catwalk/internal/checksum"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/stepid"
)

const indexFileName = "index.json"

// datasetIndex is the serialized form of index.json.
type datasetIndex struct {
	URI            string            `json:"uri"`
	Meta           DatasetMeta       `json:"meta"`
	SourceChecksum string            `json:"source_checksum"`
	Tables         []tableIndexEntry `json:"tables"`
	CreatedAt      string            `json:"created_at"`
}

// tableIndexEntry records one table and the digest of its CSV content.
type tableIndexEntry struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
}

// tableMetaFile is the serialized form of `<table>.meta.json`.
type tableMetaFile struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	PrimaryKey  []string `json:"primary_key"`
	Columns     []Column `json:"columns"`
}

// Store is the on-disk dataset catalog rooted at a single directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at the given directory, creating it if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("catalog root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the catalog root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory a dataset lives in.
func (s *Store) Dir(id stepid.ID) string {
	return filepath.Join(s.root, filepath.FromSlash(id.Path()))
}

// Has reports whether a saved dataset exists for the given step.
func (s *Store) Has(id stepid.ID) bool {
	_, err := os.Stat(filepath.Join(s.Dir(id), indexFileName))
	return err == nil
}

// SourceChecksum returns the input checksum a dataset was saved with, or the
// empty string when no dataset exists or its index cannot be read. The empty
// string never matches a computed checksum, so unreadable datasets are
// treated as stale.
func (s *Store) SourceChecksum(id stepid.ID) string {
	index, err := s.readIndex(id)
	if err != nil {
		return ""
	}
	return index.SourceChecksum
}

// Load opens a saved dataset in read mode. Tables are read lazily.
func (s *Store) Load(ctx context.Context, id stepid.ID) (*Dataset, error) {
	index, err := s.readIndex(id)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", id, err)
	}

	ctxlog.FromContext(ctx).Debug("Loaded dataset index.", "dataset", id.String(), "tables", len(index.Tables))
	return &Dataset{
		ID:             id,
		Meta:           index.Meta,
		store:          s,
		sourceChecksum: index.SourceChecksum,
		tables:         make(map[string]*Table),
		index:          index,
	}, nil
}

func (s *Store) readIndex(id stepid.ID) (*datasetIndex, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(id), indexFileName))
	if err != nil {
		return nil, err
	}
	var index datasetIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", indexFileName, err)
	}
	return &index, nil
}

// readTable reads one table's CSV and metadata sidecar from a dataset directory.
func (s *Store) readTable(id stepid.ID, index *datasetIndex, name string) (*Table, error) {
	found := false
	for _, entry := range index.Tables {
		if entry.Name == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("dataset %s: no table %q", id, name)
	}

	dir := s.Dir(id)

	metaData, err := os.ReadFile(filepath.Join(dir, name+".meta.json"))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: reading table metadata: %w", id, err)
	}
	var meta tableMetaFile
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("dataset %s: corrupt metadata for table %q: %w", id, name, err)
	}

	csvData, err := os.ReadFile(filepath.Join(dir, name+".csv"))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: reading table data: %w", id, err)
	}

	t := &Table{
		Name:        name,
		Title:       meta.Title,
		Description: meta.Description,
		PrimaryKey:  meta.PrimaryKey,
		Columns:     meta.Columns,
	}
	if err := t.ReadCSV(bytes.NewReader(csvData)); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	return t, nil
}

// save stages the dataset in a temporary directory and atomically renames it
// over the target. A pre-existing dataset for the same step is replaced.
func (s *Store) save(ctx context.Context, d *Dataset) error {
	logger := ctxlog.FromContext(ctx)

	targetDir := s.Dir(d.ID)
	parentDir := filepath.Dir(targetDir)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return fmt.Errorf("saving dataset %s: %w", d.ID, err)
	}

	stageDir, err := os.MkdirTemp(parentDir, "."+d.ID.ShortName+"-stage-*")
	if err != nil {
		return fmt.Errorf("saving dataset %s: %w", d.ID, err)
	}
	defer os.RemoveAll(stageDir)

	index := &datasetIndex{
		URI:            d.ID.String(),
		Meta:           d.Meta,
		SourceChecksum: d.sourceChecksum,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	for _, name := range d.tableOrder {
		t := d.tables[name]

		var buf bytes.Buffer
		if err := t.WriteCSV(&buf); err != nil {
			return fmt.Errorf("saving dataset %s: %w", d.ID, err)
		}
		if err := os.WriteFile(filepath.Join(stageDir, name+".csv"), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("saving dataset %s: %w", d.ID, err)
		}

		metaData, err := json.MarshalIndent(tableMetaFile{
			Title:       t.Title,
			Description: t.Description,
			PrimaryKey:  t.PrimaryKey,
			Columns:     t.Columns,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("saving dataset %s: %w", d.ID, err)
		}
		if err := os.WriteFile(filepath.Join(stageDir, name+".meta.json"), metaData, 0o644); err != nil {
			return fmt.Errorf("saving dataset %s: %w", d.ID, err)
		}

		digest := checksum.New()
		digest.WriteField(buf.Bytes())
		index.Tables = append(index.Tables, tableIndexEntry{Name: name, Checksum: digest.Sum()})
	}

	indexData, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("saving dataset %s: %w", d.ID, err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, indexFileName), indexData, 0o644); err != nil {
		return fmt.Errorf("saving dataset %s: %w", d.ID, err)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("saving dataset %s: %w", d.ID, err)
	}
	if err := os.Rename(stageDir, targetDir); err != nil {
		return fmt.Errorf("saving dataset %s: %w", d.ID, err)
	}

	logger.Debug("Dataset committed to catalog.", "dataset", d.ID.String(), "dir", targetDir, "tables", len(index.Tables))
	return nil
}
