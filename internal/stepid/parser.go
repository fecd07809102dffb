package stepid

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// nameRegex constrains namespace, short name, and file name segments.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// isValidVersion accepts an ISO date (the usual case) or the floating
// "latest" label.
func isValidVersion(version string) bool {
	if version == VersionLatest {
		return true
	}
	_, err := time.Parse("2006-01-02", version)
	return err == nil
}

// Parse creates an ID by parsing its canonical URI representation. The
// `data://` scheme prefix is optional; the four path segments are not.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("step identifier cannot be empty")
	}

	trimmed := strings.TrimPrefix(raw, DataScheme)
	parts := strings.Split(trimmed, "/")
	if len(parts) != 4 {
		return ID{}, fmt.Errorf("invalid step identifier %q: want channel/namespace/version/short_name", raw)
	}

	id := ID{
		Channel:   Channel(parts[0]),
		Namespace: parts[1],
		Version:   parts[2],
		ShortName: parts[3],
	}

	if !id.Channel.Valid() {
		return ID{}, fmt.Errorf("invalid step identifier %q: unknown channel %q", raw, parts[0])
	}
	if id.Channel == ChannelSnapshot {
		return ID{}, fmt.Errorf("invalid step identifier %q: snapshots use the %q scheme", raw, SnapshotScheme)
	}
	if !nameRegex.MatchString(id.Namespace) {
		return ID{}, fmt.Errorf("invalid step identifier %q: bad namespace %q", raw, id.Namespace)
	}
	if !isValidVersion(id.Version) {
		return ID{}, fmt.Errorf("invalid step identifier %q: version must be YYYY-MM-DD or %q", raw, VersionLatest)
	}
	if !nameRegex.MatchString(id.ShortName) {
		return ID{}, fmt.Errorf("invalid step identifier %q: bad short name %q", raw, id.ShortName)
	}

	return id, nil
}

// ParseSnapshot creates a SnapshotID by parsing its canonical URI representation.
func ParseSnapshot(raw string) (SnapshotID, error) {
	if !strings.HasPrefix(raw, SnapshotScheme) {
		return SnapshotID{}, fmt.Errorf("invalid snapshot identifier %q: missing %q scheme", raw, SnapshotScheme)
	}

	parts := strings.Split(strings.TrimPrefix(raw, SnapshotScheme), "/")
	if len(parts) != 3 {
		return SnapshotID{}, fmt.Errorf("invalid snapshot identifier %q: want namespace/version/filename", raw)
	}

	s := SnapshotID{Namespace: parts[0], Version: parts[1], FileName: parts[2]}
	if !nameRegex.MatchString(s.Namespace) {
		return SnapshotID{}, fmt.Errorf("invalid snapshot identifier %q: bad namespace %q", raw, s.Namespace)
	}
	if !isValidVersion(s.Version) {
		return SnapshotID{}, fmt.Errorf("invalid snapshot identifier %q: version must be YYYY-MM-DD or %q", raw, VersionLatest)
	}
	if !nameRegex.MatchString(s.FileName) {
		return SnapshotID{}, fmt.Errorf("invalid snapshot identifier %q: bad file name %q", raw, s.FileName)
	}

	return s, nil
}

// ParseRef parses a dependency reference of either scheme.
func ParseRef(raw string) (Ref, error) {
	if strings.HasPrefix(raw, SnapshotScheme) {
		s, err := ParseSnapshot(raw)
		if err != nil {
			return Ref{}, err
		}
		return Ref{Snapshot: &s}, nil
	}

	id, err := Parse(raw)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Dataset: &id}, nil
}
