package dag

import "strings"

// Subgraph returns the graph restricted to step nodes whose URI contains the
// given substring, plus everything they transitively depend on. An empty
// selector returns the graph unchanged.
func (g *Graph) Subgraph(selector string) *Graph {
	if selector == "" {
		return g
	}

	keep := make(map[string]bool)
	var markAncestors func(n *Node)
	markAncestors = func(n *Node) {
		if keep[n.ID] {
			return
		}
		keep[n.ID] = true
		for _, dep := range n.Deps {
			markAncestors(dep)
		}
	}

	for _, node := range g.Nodes {
		if node.Type == StepNode && strings.Contains(node.ID, selector) {
			markAncestors(node)
		}
	}

	sub := &Graph{Nodes: make(map[string]*Node, len(keep))}
	for id := range keep {
		sub.Nodes[id] = g.Nodes[id]
	}

	// Dropped dependents would leave dangling edges, so rebuild the edge maps
	// against the surviving node set.
	for _, node := range sub.Nodes {
		dependents := make(map[string]*Node)
		for id, dep := range node.Dependents {
			if keep[id] {
				dependents[id] = dep
			}
		}
		node.Dependents = dependents
		node.SetInitialCounters()
	}

	return sub
}
