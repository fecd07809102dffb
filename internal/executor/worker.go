package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/dag"
	"github.com/vk/catwalk/internal/state"
)

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dep := dependent
		dep.Skip(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dep.ID, "dependency", node.ID)
			dep.State.Store(int32(dag.Failed))
			dep.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.recordStepOutcome(ctx, dep, state.StepSkipped, 0, dep.Error, time.Now(), time.Now())
			e.wg.Done()
			e.skipDependents(ctx, dep)
		})
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			n := node
			n.Skip(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				n.State.Store(int32(dag.Failed))
				n.Error = ctx.Err()
				e.wg.Done()
			})
			// Dependents of a canceled node will never become ready on
			// their own; release them so wg can drain.
			e.skipDependents(ctx, n)
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		err := e.executeNode(ctx, node)

		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.State.Store(int32(dag.Failed))
			node.Error = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")

		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// executeNode dispatches one ready node to the appropriate handler and
// stores its terminal state.
func (e *Executor) executeNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("nodeID", node.ID)

	switch node.Type {
	case dag.SnapshotNode:
		// Snapshots were verified during planning; they complete immediately.
		node.State.Store(int32(dag.Done))
		return nil

	case dag.StepNode:
		if !node.Stale {
			logger.Info("⏩ Step up to date, skipping", "step", node.ID)
			node.State.Store(int32(dag.Cached))
			now := time.Now()
			e.recordStepOutcome(ctx, node, state.StepCached, 0, nil, now, now)
			return nil
		}

		node.State.Store(int32(dag.Running))
		startedAt := time.Now()
		attempts, err := e.runStepWithRetries(ctx, node)
		finishedAt := time.Now()

		if err != nil {
			e.recordStepOutcome(ctx, node, state.StepFailed, attempts, err, startedAt, finishedAt)
			return err
		}

		node.State.Store(int32(dag.Done))
		e.recordStepOutcome(ctx, node, state.StepSucceeded, attempts, nil, startedAt, finishedAt)
		return nil

	default:
		return fmt.Errorf("unknown node type for '%s'", node.ID)
	}
}

// runStepWithRetries executes the step handler up to the configured number of
// attempts, backing off linearly between failures.
func (e *Executor) runStepWithRetries(ctx context.Context, node *dag.Node) (int, error) {
	logger := ctxlog.FromContext(ctx).With("step", node.ID)

	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * e.retryDelay
			logger.Warn("Retrying step after failure.", "attempt", attempt, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return attempt - 1, ctx.Err()
			case <-time.After(delay):
			}
		}

		err = e.executeStepNode(ctx, node)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, err
		}
	}
	return e.attempts, err
}

// recordStepOutcome persists one step outcome to the state store. Recording
// failures must not fail the build, so errors are only logged.
func (e *Executor) recordStepOutcome(ctx context.Context, node *dag.Node, outcome string, attempts int, stepErr error, startedAt, finishedAt time.Time) {
	if e.stateStore == nil || node.Type != dag.StepNode {
		return
	}

	errText := ""
	if stepErr != nil {
		errText = stepErr.Error()
	}
	rec := state.StepRun{
		RunID:      e.runID,
		StepURI:    node.ID,
		Checksum:   node.Checksum,
		State:      outcome,
		Attempts:   attempts,
		Error:      errText,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if err := e.stateStore.RecordStepRun(context.WithoutCancel(ctx), rec); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to record step outcome.", "step", node.ID, "error", err)
	}
}
