package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Primary DAG Structures ---

// StepArgs represents the content of the 'arguments' block within a step.
// The body is left undecoded until the runner's input struct is known.
type StepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Step represents a `step` block from a DAG file. The two labels carry the
// step's catalog identity: the channel, then `namespace/version/short_name`.
type Step struct {
	Channel   string    `hcl:"channel,label"`
	Path      string    `hcl:"dataset_path,label"`
	Runner    string    `hcl:"runner,optional"`
	DependsOn []string  `hcl:"depends_on,optional"`
	Arguments *StepArgs `hcl:"arguments,block"`
}

// DAGConfig represents the top-level structure of a DAG file, containing all
// declared steps.
type DAGConfig struct {
	Steps []*Step  `hcl:"step,block"`
	Body  hcl.Body `hcl:",remain"`
}

// --- Runner Manifest Schemas ---

// Lifecycle defines the mapping from a runner's lifecycle event to a
// registered Go handler function.
type Lifecycle struct {
	OnRun string `hcl:"on_run"`
}

// InputDefinition defines a single input variable for a runner.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     *cty.Value     `hcl:"default,optional"`
}

// RunnerDefinition represents the HCL manifest for a runnable `runner` type.
type RunnerDefinition struct {
	Type        string             `hcl:"type,label"`
	Description string             `hcl:"description,optional"`
	Lifecycle   *Lifecycle         `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition `hcl:"input,block"`
}

// ManifestConfig represents the top-level structure of a runner manifest file.
type ManifestConfig struct {
	Runner *RunnerDefinition `hcl:"runner,block"`
	Body   hcl.Body          `hcl:",remain"`
}
