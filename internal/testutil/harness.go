package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/catwalk/internal/app"
	"github.com/vk/catwalk/internal/catalog"
	"github.com/vk/catwalk/internal/registry"
	"github.com/vk/catwalk/internal/snapshot"
	"github.com/vk/catwalk/internal/stepid"
)

// HarnessResult holds the outcomes of a single pipeline run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// Harness sets up an isolated pipeline workspace: a temporary root with DAG
// files, runner manifests, catalog, snapshot store, and run history database.
// The workspace persists across Run calls so tests can exercise incremental
// rebuilds.
type Harness struct {
	t       *testing.T
	Root    string
	Config  app.Config
	modules []registry.Module
}

// RunOptions tweaks a single Harness.Run invocation.
type RunOptions struct {
	Force  bool
	DryRun bool
	Select string
}

// NewHarness creates a workspace from a map of relative file paths to file
// contents. DAG files go under "dag/", manifests under "modules/<name>/".
func NewHarness(t *testing.T, files map[string]string, modules ...registry.Module) *Harness {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".tmp-catwalk-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	for _, sub := range []string{"dag", "modules", "catalog", "snapshots"} {
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, sub), 0o755))
	}

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	return &Harness{
		t:    t,
		Root: tmpDir,
		Config: app.Config{
			DAGPath:     filepath.Join(tmpDir, "dag"),
			ModulesPath: filepath.Join(tmpDir, "modules"),
			CatalogDir:  filepath.Join(tmpDir, "catalog"),
			SnapshotDir: filepath.Join(tmpDir, "snapshots"),
			StateDBPath: filepath.Join(tmpDir, "state.db"),
			LogLevel:    "debug",
			LogFormat:   "text",
			WorkerCount: 4,
			Attempts:    1,
		},
		modules: modules,
	}
}

// WriteFile replaces one workspace file, e.g. to change a step's arguments
// between two runs.
func (h *Harness) WriteFile(name, content string) {
	h.t.Helper()
	filePath := filepath.Join(h.Root, name)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(h.t, os.WriteFile(filePath, []byte(content), 0o644))
}

// CreateSnapshot ingests a file into the workspace's snapshot store.
func (h *Harness) CreateSnapshot(uri string, meta snapshot.Meta, content string) stepid.SnapshotID {
	h.t.Helper()

	id, err := stepid.ParseSnapshot(uri)
	require.NoError(h.t, err)

	srcPath := filepath.Join(h.Root, "ingest-"+id.FileName)
	require.NoError(h.t, os.WriteFile(srcPath, []byte(content), 0o644))

	store, err := snapshot.NewStore(h.Config.SnapshotDir)
	require.NoError(h.t, err)
	_, err = store.Create(context.Background(), id, meta, srcPath)
	require.NoError(h.t, err)
	return id
}

// Catalog opens the workspace's dataset catalog for assertions.
func (h *Harness) Catalog() *catalog.Store {
	h.t.Helper()
	store, err := catalog.NewStore(h.Config.CatalogDir)
	require.NoError(h.t, err)
	return store
}

// Run builds a fresh App against the workspace and executes the pipeline,
// mirroring one CLI invocation. Startup panics are converted into errors so
// tests can assert on them.
func (h *Harness) Run(ctx context.Context, opts RunOptions) *HarnessResult {
	h.t.Helper()

	appConfig := h.Config
	appConfig.Force = opts.Force
	appConfig.DryRun = opts.DryRun
	appConfig.Select = opts.Select

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, &appConfig, h.modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx, &appConfig)

	if os.Getenv("CATWALK_TEST_LOGS") == "true" {
		h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}

// RunIntegrationTest is the one-shot form: build the workspace, run once.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	h := NewHarness(t, files, modules...)
	return h.Run(context.Background(), RunOptions{})
}
