package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/catwalk/internal/checksum"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/stepid"
)

const sidecarSuffix = ".meta.hcl"

// Snapshot is a read-only handle to one stored raw file and its provenance.
type Snapshot struct {
	ID   stepid.SnapshotID
	Meta Meta

	path string
}

// Path returns the location of the raw file on disk.
func (s *Snapshot) Path() string {
	return s.path
}

// Open opens the raw file for reading.
func (s *Snapshot) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

// Store is the snapshot store rooted at a single directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at the given directory, creating it if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("snapshot root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot root: %w", err)
	}
	return &Store{root: root}, nil
}

// filePath returns the raw file location for an ID.
func (s *Store) filePath(id stepid.SnapshotID) string {
	return filepath.Join(s.root, filepath.FromSlash(id.Path()))
}

// Resolve pins a `latest` version to the newest stored version that contains
// the named file. Concrete versions pass through after an existence check.
func (s *Store) Resolve(id stepid.SnapshotID) (stepid.SnapshotID, error) {
	if id.Version != stepid.VersionLatest {
		if _, err := os.Stat(s.filePath(id) + sidecarSuffix); err != nil {
			return stepid.SnapshotID{}, fmt.Errorf("snapshot %s not found in store", id)
		}
		return id, nil
	}

	namespaceDir := filepath.Join(s.root, id.Namespace)
	entries, err := os.ReadDir(namespaceDir)
	if err != nil {
		return stepid.SnapshotID{}, fmt.Errorf("snapshot %s: no versions in store", id)
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := id
		candidate.Version = entry.Name()
		if _, err := os.Stat(s.filePath(candidate) + sidecarSuffix); err == nil {
			versions = append(versions, entry.Name())
		}
	}
	if len(versions) == 0 {
		return stepid.SnapshotID{}, fmt.Errorf("snapshot %s: no versions in store", id)
	}

	// ISO dates sort lexicographically, so the last entry is the newest.
	sort.Strings(versions)
	id.Version = versions[len(versions)-1]
	return id, nil
}

// Checksum returns the recorded checksum of a snapshot. The ID must be
// concrete (already resolved).
func (s *Store) Checksum(id stepid.SnapshotID) (string, error) {
	meta, err := readMeta(s.filePath(id) + sidecarSuffix)
	if err != nil {
		return "", err
	}
	return meta.Checksum, nil
}

// Load opens a stored snapshot, resolving `latest` versions first.
func (s *Store) Load(ctx context.Context, id stepid.SnapshotID) (*Snapshot, error) {
	resolved, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}

	path := s.filePath(resolved)
	meta, err := readMeta(path + sidecarSuffix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot %s: raw file missing: %w", resolved, err)
	}

	ctxlog.FromContext(ctx).Debug("Loaded snapshot.", "snapshot", resolved.String(), "path", path)
	return &Snapshot{ID: resolved, Meta: meta, path: path}, nil
}

// Create ingests a new snapshot: the source file is copied into the store,
// its checksum computed, and the provenance sidecar written. An existing
// snapshot with the same ID is overwritten.
func (s *Store) Create(ctx context.Context, id stepid.SnapshotID, meta Meta, srcPath string) (*Snapshot, error) {
	logger := ctxlog.FromContext(ctx)

	if id.Version == stepid.VersionLatest {
		return nil, fmt.Errorf("snapshot %s: cannot create a snapshot with a floating version", id)
	}

	destPath := s.filePath(id)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot %s: %w", id, err)
	}

	if err := copyFile(srcPath, destPath); err != nil {
		return nil, fmt.Errorf("creating snapshot %s: %w", id, err)
	}

	sum, err := checksum.File(destPath)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot %s: %w", id, err)
	}
	meta.Checksum = sum

	if err := writeMeta(destPath+sidecarSuffix, meta); err != nil {
		return nil, fmt.Errorf("creating snapshot %s: %w", id, err)
	}

	logger.Info("✅ Snapshot created", "snapshot", id.String(), "checksum", sum)
	return &Snapshot{ID: id, Meta: meta, path: destPath}, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
