package stepid

import "path"

// DataScheme and SnapshotScheme are the URI prefixes of the two reference kinds.
const (
	DataScheme     = "data://"
	SnapshotScheme = "snapshot://"
)

// VersionLatest is the floating version label resolved at graph-build time to
// the highest concrete version available.
const VersionLatest = "latest"

// String serializes the ID into its canonical URI representation.
func (id ID) String() string {
	return DataScheme + id.Path()
}

// Path returns the catalog-relative directory path of the dataset this ID addresses.
func (id ID) Path() string {
	return path.Join(string(id.Channel), id.Namespace, id.Version, id.ShortName)
}

// WithVersion returns a copy of the ID with the version replaced.
func (id ID) WithVersion(version string) ID {
	id.Version = version
	return id
}

// String serializes the SnapshotID into its canonical URI representation.
func (s SnapshotID) String() string {
	return SnapshotScheme + s.Path()
}

// Path returns the store-relative file path of the snapshot this ID addresses.
func (s SnapshotID) Path() string {
	return path.Join(s.Namespace, s.Version, s.FileName)
}

// String serializes the reference into its canonical URI representation.
func (r Ref) String() string {
	if r.Snapshot != nil {
		return r.Snapshot.String()
	}
	if r.Dataset != nil {
		return r.Dataset.String()
	}
	return ""
}
