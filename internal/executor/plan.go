package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/catwalk/internal/checksum"
	"github.com/vk/catwalk/internal/config"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/dag"
)

// PlanEntry describes one node's planned fate, in dependency order.
type PlanEntry struct {
	URI      string
	Type     dag.NodeType
	Checksum string
	Stale    bool
}

// Plan summarizes what a run would do.
type Plan struct {
	Entries []PlanEntry
	// StaleSteps counts step nodes that will execute.
	StaleSteps int
	// CachedSteps counts step nodes that are already up to date.
	CachedSteps int
}

// Plan walks the graph in dependency order, computes every node's input
// checksum, and decides staleness against the catalog. With force set, every
// step is marked stale regardless of recorded checksums.
func (e *Executor) Plan(ctx context.Context, force bool) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	order, err := e.Graph.TopoSort()
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, uri := range order {
		node := e.Graph.Nodes[uri]

		switch node.Type {
		case dag.SnapshotNode:
			sum, err := e.snapshots.Checksum(node.SnapshotID)
			if err != nil {
				return nil, fmt.Errorf("planning %s: %w", uri, err)
			}
			node.Checksum = sum
			node.Stale = false

		case dag.StepNode:
			sum, err := stepInputChecksum(node)
			if err != nil {
				return nil, fmt.Errorf("planning %s: %w", uri, err)
			}
			node.Checksum = sum
			node.Stale = force || e.catalog.SourceChecksum(node.Step.ID) != sum
			if node.Stale {
				plan.StaleSteps++
			} else {
				plan.CachedSteps++
			}
		}

		plan.Entries = append(plan.Entries, PlanEntry{
			URI:      uri,
			Type:     node.Type,
			Checksum: node.Checksum,
			Stale:    node.Stale,
		})
		logger.Debug("Planned node.", "nodeID", uri, "checksum", node.Checksum, "stale", node.Stale)
	}

	return plan, nil
}

// stepInputChecksum digests everything that determines a step's output:
// its identity, runner type, canonical arguments, and the checksum of every
// input. Dependencies are visited in sorted URI order so the digest does not
// depend on map iteration.
func stepInputChecksum(node *dag.Node) (string, error) {
	d := checksum.New()
	d.WriteString(node.ID)
	d.WriteString(node.Step.Runner)

	if err := hashArguments(d, node.Step); err != nil {
		return "", err
	}

	depURIs := make([]string, 0, len(node.Deps))
	for uri := range node.Deps {
		depURIs = append(depURIs, uri)
	}
	sort.Strings(depURIs)
	for _, uri := range depURIs {
		d.WriteString(uri)
		d.WriteString(node.Deps[uri].Checksum)
	}

	return d.Sum(), nil
}

// hashArguments evaluates the step's argument attributes and folds them into
// the digest in sorted attribute order.
func hashArguments(d *checksum.Digest, step *config.Step) error {
	if step.Arguments == nil {
		return nil
	}

	attrs, diags := step.Arguments.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("reading arguments: %w", diags)
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	evalCtx := evalContextFor(step)
	for _, name := range names {
		val, diags := attrs[name].Expr.Value(evalCtx)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating argument %q: %w", name, diags)
		}
		d.WriteString(name)
		if err := d.CtyValue(val); err != nil {
			return fmt.Errorf("hashing argument %q: %w", name, err)
		}
	}

	return nil
}

// evalContextFor exposes the step's own identity to argument expressions.
func evalContextFor(step *config.Step) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"step": cty.ObjectVal(map[string]cty.Value{
				"channel":    cty.StringVal(string(step.ID.Channel)),
				"namespace":  cty.StringVal(step.ID.Namespace),
				"version":    cty.StringVal(step.ID.Version),
				"short_name": cty.StringVal(step.ID.ShortName),
			}),
		},
	}
}
