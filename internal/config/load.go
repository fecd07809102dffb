package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/fsutil"
	"github.com/vk/catwalk/internal/schema"
	"github.com/vk/catwalk/internal/stepid"
)

// Load reads every .hcl file under dagPath and modulesPath and returns the
// combined, validated model. dagPath may be a single file or a directory.
func Load(ctx context.Context, dagPath, modulesPath string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	model := &Model{
		Steps:   make(map[string]*Step),
		Runners: make(map[string]*schema.RunnerDefinition),
	}

	parser := hclparse.NewParser()

	if modulesPath != "" {
		if err := loadManifests(ctx, parser, model, modulesPath); err != nil {
			return nil, err
		}
	}
	if err := loadSteps(ctx, parser, model, dagPath); err != nil {
		return nil, err
	}

	if err := resolveLatestVersions(model); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded.", "steps", len(model.Steps), "runners", len(model.Runners))
	return model, nil
}

// loadManifests parses runner manifest files into the model.
func loadManifests(ctx context.Context, parser *hclparse.Parser, model *Model, modulesPath string) error {
	logger := ctxlog.FromContext(ctx)

	filePaths, err := fsutil.FindFilesByExtension(modulesPath, ".hcl")
	if err != nil {
		return fmt.Errorf("walking modules path %s: %w", modulesPath, err)
	}
	if len(filePaths) == 0 {
		logger.Warn("No runner manifests found in modules path.", "path", modulesPath)
	}

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("parsing manifest %s: %w", filePath, diags)
		}

		var manifest schema.ManifestConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &manifest); diags.HasErrors() {
			return fmt.Errorf("decoding manifest %s: %w", filePath, diags)
		}
		if manifest.Runner == nil {
			continue
		}
		if manifest.Runner.Lifecycle == nil || manifest.Runner.Lifecycle.OnRun == "" {
			return fmt.Errorf("manifest %s: runner %q has no on_run lifecycle handler", filePath, manifest.Runner.Type)
		}
		if _, exists := model.Runners[manifest.Runner.Type]; exists {
			return fmt.Errorf("manifest %s: duplicate runner type %q", filePath, manifest.Runner.Type)
		}

		model.Runners[manifest.Runner.Type] = manifest.Runner
		logger.Debug("Loaded runner manifest.", "file", filePath, "type", manifest.Runner.Type)
	}

	return nil
}

// loadSteps parses DAG files into the model.
func loadSteps(ctx context.Context, parser *hclparse.Parser, model *Model, dagPath string) error {
	logger := ctxlog.FromContext(ctx)

	filePaths, err := fsutil.FindFilesByExtension(dagPath, ".hcl")
	if err != nil {
		return fmt.Errorf("walking DAG path %s: %w", dagPath, err)
	}

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("parsing DAG file %s: %w", filePath, diags)
		}

		var dagConfig schema.DAGConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &dagConfig); diags.HasErrors() {
			return fmt.Errorf("decoding DAG file %s: %w", filePath, diags)
		}

		for _, s := range dagConfig.Steps {
			step, err := translateStep(s)
			if err != nil {
				return fmt.Errorf("in %s: %w", filePath, err)
			}
			uri := step.ID.String()
			if _, exists := model.Steps[uri]; exists {
				return fmt.Errorf("in %s: duplicate step %s", filePath, uri)
			}
			model.Steps[uri] = step
			logger.Debug("Loaded step declaration.", "file", filePath, "step", uri)
		}
	}

	return nil
}

// translateStep converts the HCL step schema into the resolved model form.
func translateStep(s *schema.Step) (*Step, error) {
	id, err := stepid.Parse(s.Channel + "/" + s.Path)
	if err != nil {
		return nil, err
	}
	if id.Version == stepid.VersionLatest {
		return nil, fmt.Errorf("step %s: a step cannot declare itself with version %q", id, stepid.VersionLatest)
	}
	if s.Runner == "" {
		return nil, fmt.Errorf("step %s: runner is required", id)
	}

	step := &Step{ID: id, Runner: s.Runner}
	if s.Arguments != nil {
		step.Arguments = s.Arguments.Body
	}

	for _, raw := range s.DependsOn {
		ref, err := stepid.ParseRef(raw)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", id, err)
		}
		step.DependsOn = append(step.DependsOn, ref)
	}

	return step, nil
}

// resolveLatestVersions pins every `latest` data dependency to the highest
// version declared for the same channel, namespace, and short name. Snapshot
// references keep their `latest` label here; the snapshot store resolves them
// during graph construction since declared steps cannot know which snapshot
// versions exist on disk.
func resolveLatestVersions(model *Model) error {
	// Collect declared versions per (channel, namespace, short_name).
	versions := make(map[stepid.ID][]string)
	for _, step := range model.Steps {
		key := step.ID.WithVersion("")
		versions[key] = append(versions[key], step.ID.Version)
	}
	for key := range versions {
		sort.Strings(versions[key])
	}

	for _, step := range model.Steps {
		for i, ref := range step.DependsOn {
			if ref.Dataset == nil || ref.Dataset.Version != stepid.VersionLatest {
				continue
			}
			key := ref.Dataset.WithVersion("")
			declared, ok := versions[key]
			if !ok {
				return fmt.Errorf("step %s depends on %s but no version of it is declared", step.ID, ref.Dataset)
			}
			// ISO dates sort lexicographically, so the last entry is the newest.
			pinned := ref.Dataset.WithVersion(declared[len(declared)-1])
			step.DependsOn[i] = stepid.Ref{Dataset: &pinned}
		}
	}

	return nil
}
