// Package paths gives a running step its view of the catalog. A PathFinder
// is scoped to one step: it resolves and loads only the upstream datasets and
// snapshots the step declared as dependencies, and creates the step's single
// output dataset stamped with the engine's planned input checksum. Keeping
// all catalog access behind this handle is what makes the declared DAG
// trustworthy: a step physically cannot read data it never declared.
package paths

import (
	"context"
	"fmt"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/snapshot"
	"github.com/vk/catwalk/internal/stepid"
)

// PathFinder resolves a step's declared upstream paths and creates its output.
type PathFinder struct {
	id             stepid.ID
	deps           []stepid.Ref
	catalogStore   *catalog.Store
	snapshotStore  *snapshot.Store
	sourceChecksum string
}

// New builds a PathFinder for one step. The dependency references must
// already be concrete (floating versions resolved during graph construction).
func New(id stepid.ID, deps []stepid.Ref, catalogStore *catalog.Store, snapshotStore *snapshot.Store, sourceChecksum string) *PathFinder {
	return &PathFinder{
		id:             id,
		deps:           deps,
		catalogStore:   catalogStore,
		snapshotStore:  snapshotStore,
		sourceChecksum: sourceChecksum,
	}
}

// ID returns the identity of the step this PathFinder belongs to.
func (p *PathFinder) ID() stepid.ID {
	return p.id
}

// LoadDataset loads a declared upstream dataset by its short name. The name
// must match exactly one declared dependency.
func (p *PathFinder) LoadDataset(ctx context.Context, shortName string) (*catalog.Dataset, error) {
	var match *stepid.ID
	for _, ref := range p.deps {
		if ref.Dataset == nil || ref.Dataset.ShortName != shortName {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("step %s: ambiguous dataset %q: matches both %s and %s",
				p.id, shortName, match, ref.Dataset)
		}
		match = ref.Dataset
	}
	if match == nil {
		return nil, fmt.Errorf("step %s: dataset %q is not a declared dependency", p.id, shortName)
	}
	return p.catalogStore.Load(ctx, *match)
}

// LoadSnapshot loads a declared upstream snapshot by its file name. The name
// must match exactly one declared dependency.
func (p *PathFinder) LoadSnapshot(ctx context.Context, fileName string) (*snapshot.Snapshot, error) {
	var match *stepid.SnapshotID
	for _, ref := range p.deps {
		if ref.Snapshot == nil || ref.Snapshot.FileName != fileName {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("step %s: ambiguous snapshot %q: matches both %s and %s",
				p.id, fileName, match, ref.Snapshot)
		}
		match = ref.Snapshot
	}
	if match == nil {
		return nil, fmt.Errorf("step %s: snapshot %q is not a declared dependency", p.id, fileName)
	}
	return p.snapshotStore.Load(ctx, *match)
}

// NewDataset creates the step's output dataset with the given tables and
// default metadata, bound to the catalog store and stamped with the step's
// planned input checksum. The caller finishes the step by calling Save on
// the returned dataset.
func (p *PathFinder) NewDataset(tables []*catalog.Table, defaultMeta catalog.DatasetMeta) (*catalog.Dataset, error) {
	ds := catalog.NewDataset(p.id, defaultMeta, p.catalogStore, p.sourceChecksum)
	for _, t := range tables {
		if err := ds.AddTable(t); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
