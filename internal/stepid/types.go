package stepid

// Channel marks a dataset's processing maturity within the catalog pipeline.
type Channel string

// The canonical pipeline channels, in processing order.
const (
	ChannelSnapshot Channel = "snapshot"
	ChannelMeadow   Channel = "meadow"
	ChannelGarden   Channel = "garden"
	ChannelGrapher  Channel = "grapher"
	ChannelExplorer Channel = "explorer"
)

// Valid reports whether the channel is one of the known pipeline channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSnapshot, ChannelMeadow, ChannelGarden, ChannelGrapher, ChannelExplorer:
		return true
	default:
		return false
	}
}

// ID is the structured representation of a step identifier. It uniquely
// addresses one producible dataset in the catalog.
type ID struct {
	Channel   Channel
	Namespace string
	Version   string
	ShortName string
}

// SnapshotID uniquely addresses one raw file in the snapshot store.
type SnapshotID struct {
	Namespace string
	Version   string
	FileName  string
}

// Ref is a dependency reference: either a dataset produced by an upstream
// step, or a raw snapshot. Exactly one of the two fields is set.
type Ref struct {
	Dataset  *ID
	Snapshot *SnapshotID
}

// IsSnapshot reports whether the reference points at a snapshot.
func (r Ref) IsSnapshot() bool {
	return r.Snapshot != nil
}
