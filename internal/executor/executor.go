package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/dag"
	"github.com/vk/catwalk/internal/registry"
	"github.com/vk/catwalk/internal/snapshot"
	"github.com/vk/catwalk/internal/state"
)

// Executor runs a planned graph with a pool of concurrent workers.
type Executor struct {
	Graph *dag.Graph

	numWorkers int
	attempts   int
	retryDelay time.Duration

	registry   *registry.Registry
	catalog    *catalog.Store
	snapshots  *snapshot.Store
	stateStore *state.Store
	runID      string

	wg sync.WaitGroup
}

// Options bundles the collaborators and tuning knobs an Executor needs.
type Options struct {
	Workers    int
	Attempts   int
	RetryDelay time.Duration
	Registry   *registry.Registry
	Catalog    *catalog.Store
	Snapshots  *snapshot.Store
	StateStore *state.Store
	RunID      string
}

// New creates an Executor for the given graph.
func New(graph *dag.Graph, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Executor{
		Graph:      graph,
		numWorkers: opts.Workers,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		registry:   opts.Registry,
		catalog:    opts.Catalog,
		snapshots:  opts.Snapshots,
		stateStore: opts.StateStore,
		runID:      opts.RunID,
	}
}

// Run executes the entire graph concurrently and returns an error if any node
// fails. It respects the cancellation signal from the provided context. Plan
// must have been called first so every node carries its checksum and
// staleness flag.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *dag.Node, len(e.Graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if len(node.Deps) == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	logger.Info("Waiting for all nodes to complete...")
	e.wg.Wait()
	logger.Info("All nodes completed.")
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.Graph.Nodes {
		if dag.NodeState(node.State.Load()) == dag.Failed {
			logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
			// A "skipped" error is a symptom, not a cause.
			if node.Error != nil && !strings.HasPrefix(node.Error.Error(), "skipped") && !errors.Is(node.Error, context.Canceled) {
				failedNodes = append(failedNodes, node.ID)
				if rootCauseError == nil {
					rootCauseError = node.Error
				}
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}

	return nil
}
