package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/dag"
	"github.com/vk/catwalk/internal/executor"
	"github.com/vk/catwalk/internal/snapshot"
	"github.com/vk/catwalk/internal/state"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, appConfig.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	catalogStore, err := catalog.NewStore(appConfig.CatalogDir)
	if err != nil {
		return err
	}
	snapshotStore, err := snapshot.NewStore(appConfig.SnapshotDir)
	if err != nil {
		return err
	}

	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.model, a.registry, snapshotStore)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if appConfig.Select != "" {
		graph = graph.Subgraph(appConfig.Select)
		a.logger.Info("Narrowed run to selected steps.", "select", appConfig.Select, "node_count", len(graph.Nodes))
	}
	if len(graph.Nodes) == 0 {
		a.logger.Warn("No nodes found in graph, execution not required.")
		return nil
	}

	stateStore, err := state.Open(appConfig.StateDBPath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer stateStore.Close()

	runID := uuid.NewString()
	exec := executor.New(graph, executor.Options{
		Workers:    appConfig.WorkerCount,
		Attempts:   appConfig.Attempts,
		Registry:   a.registry,
		Catalog:    catalogStore,
		Snapshots:  snapshotStore,
		StateStore: stateStore,
		RunID:      runID,
	})

	plan, err := exec.Plan(ctx, appConfig.Force)
	if err != nil {
		return fmt.Errorf("failed to plan execution: %w", err)
	}
	a.logger.Info("📋 Plan computed.", "stale", plan.StaleSteps, "cached", plan.CachedSteps)

	if appConfig.DryRun {
		a.printPlan(plan)
		return nil
	}

	if plan.StaleSteps == 0 {
		a.logger.Info("🏁 Everything is up to date.")
		return nil
	}

	startedAt := time.Now()
	if err := stateStore.StartRun(ctx, runID, startedAt); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}

	a.logger.Info("🚀 Starting concurrent execution...", "run_id", runID, "workers", appConfig.WorkerCount)
	runErr := exec.Run(ctx)

	status := state.RunSucceeded
	if runErr != nil {
		status = state.RunFailed
	}
	if err := stateStore.FinishRun(context.WithoutCancel(ctx), runID, status, runErr, time.Now()); err != nil {
		a.logger.Error("Failed to record run finish.", "run_id", runID, "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Execution finished.", "run_id", runID, "duration", time.Since(startedAt).Round(time.Millisecond))
	return nil
}

// printPlan writes the plan to the app's output in dependency order.
func (a *App) printPlan(plan *executor.Plan) {
	for _, entry := range plan.Entries {
		if entry.Type != dag.StepNode {
			continue
		}
		verdict := "cached"
		if entry.Stale {
			verdict = "stale"
		}
		fmt.Fprintf(a.outW, "%-8s %s\n", verdict, entry.URI)
	}
	fmt.Fprintf(a.outW, "\n%d stale, %d cached\n", plan.StaleSteps, plan.CachedSteps)
}
