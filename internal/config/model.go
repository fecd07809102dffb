package config

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/vk/catwalk/internal/schema"
	"github.com/vk/catwalk/internal/stepid"
)

// Model is the unified representation of everything the DAG files and runner
// manifests declare: which steps exist, what they depend on, and which runner
// types are available.
type Model struct {
	// Steps holds every declared step, keyed by its canonical URI.
	Steps map[string]*Step
	// Runners holds every runner manifest, keyed by runner type.
	Runners map[string]*schema.RunnerDefinition
}

// Step is the resolved representation of a `step` block. All dependency
// references have been parsed and, for `data://` URIs, had floating versions
// pinned to a concrete declared step.
type Step struct {
	ID        stepid.ID
	Runner    string
	DependsOn []stepid.Ref
	// Arguments is the undecoded 'arguments' body; nil when the block is absent.
	Arguments hcl.Body
}
