package dag

import (
	"sync"
	"sync/atomic"

	"github.com/vk/catwalk/internal/config"
	"github.com/vk/catwalk/internal/stepid"
)

// NodeType distinguishes source snapshots from producible steps.
type NodeType int

const (
	// SnapshotNode is a source node backed by the snapshot store. It is never
	// executed; its checksum comes from the stored sidecar.
	SnapshotNode NodeType = iota
	// StepNode is a step that produces one dataset when stale.
	StepNode
)

// NodeState tracks a node through execution.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
	// Cached marks a node whose dataset is already up to date; it completes
	// without running its handler.
	Cached
)

// String returns the lowercase state name for logs and reports.
func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cached:
		return "cached"
	default:
		return "unknown"
	}
}

// Node represents a single vertex in the execution graph.
type Node struct {
	// ID is the canonical URI of the step or snapshot.
	ID string
	// Type distinguishes snapshots from steps.
	Type NodeType
	// Step holds the step declaration; nil for snapshot nodes.
	Step *config.Step
	// SnapshotID holds the resolved snapshot identity; zero for step nodes.
	SnapshotID stepid.SnapshotID

	// Deps holds the set of nodes this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the set of nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Checksum is the planned input checksum, filled during planning.
	Checksum string
	// Stale reports whether the node's output must be (re)built.
	Stale bool

	// State holds a NodeState; accessed atomically by the executor workers.
	State atomic.Int32
	// Error records why the node failed, if it did.
	Error error

	depCount atomic.Int32
	skipOnce sync.Once
}

// SetInitialCounters primes the dependency counter used by the executor to
// decide when a node becomes ready.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// DecrementDepCount marks one dependency as satisfied and returns the number
// still outstanding. The node is ready when this reaches zero.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// Skip runs fn at most once for this node. The executor uses it to guarantee
// a node is skipped exactly once even when several upstream failures race.
func (n *Node) Skip(fn func()) {
	n.skipOnce.Do(fn)
}

// Graph is the full execution graph keyed by canonical node URI.
type Graph struct {
	Nodes map[string]*Node
}
