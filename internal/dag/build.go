package dag

import (
	"context"
	"fmt"

	"github.com/vk/catwalk/internal/config"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/registry"
	"github.com/vk/catwalk/internal/snapshot"
	"github.com/vk/catwalk/internal/stepid"
)

// Build constructs a complete, validated dependency graph from a config
// model. Snapshot references are resolved against the snapshot store, so
// every node in the returned graph carries a concrete identity.
func Build(ctx context.Context, model *config.Model, r *registry.Registry, snapshots *snapshot.Store) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create a node per declared step and validate its runner.
	for uri, step := range model.Steps {
		if _, ok := model.Runners[step.Runner]; !ok {
			return nil, fmt.Errorf("step %s uses unknown runner type '%s'", uri, step.Runner)
		}
		if _, ok := r.DefinitionRegistry[step.Runner]; !ok {
			return nil, fmt.Errorf("step %s uses runner '%s' with no registered definition", uri, step.Runner)
		}
		graph.Nodes[uri] = &Node{
			ID:         uri,
			Type:       StepNode,
			Step:       step,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	logger.Debug("Build: Step node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link dependencies, creating snapshot source nodes on demand.
	for uri, step := range model.Steps {
		node := graph.Nodes[uri]
		for i, ref := range step.DependsOn {
			depNode, err := resolveDependency(graph, snapshots, step, i, ref)
			if err != nil {
				return nil, err
			}
			node.Deps[depNode.ID] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.")

	logger.Debug("Build: Graph construction successful.", "node_count", len(graph.Nodes))
	return graph, nil
}

// resolveDependency turns one declared reference into a graph node. Data
// references must point at a declared step; snapshot references are resolved
// against the store and pinned back into the step's dependency list so the
// executor and checksum planner see concrete versions.
func resolveDependency(graph *Graph, snapshots *snapshot.Store, step *config.Step, refIndex int, ref stepid.Ref) (*Node, error) {
	if ref.Dataset != nil {
		depNode, ok := graph.Nodes[ref.Dataset.String()]
		if !ok {
			return nil, fmt.Errorf("step %s depends on %s, but no step produces it", step.ID, ref.Dataset)
		}
		return depNode, nil
	}

	resolved, err := snapshots.Resolve(*ref.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", step.ID, err)
	}
	step.DependsOn[refIndex] = stepid.Ref{Snapshot: &resolved}

	uri := resolved.String()
	if depNode, ok := graph.Nodes[uri]; ok {
		return depNode, nil
	}

	depNode := &Node{
		ID:         uri,
		Type:       SnapshotNode,
		SnapshotID: resolved,
		Deps:       make(map[string]*Node),
		Dependents: make(map[string]*Node),
	}
	graph.Nodes[uri] = depNode
	return depNode, nil
}
