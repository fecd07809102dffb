package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/catwalk/internal/config"
	"github.com/vk/catwalk/internal/schema"
)

// Module is the interface that all transform modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredRunner holds the compiled Go parts of a runner's lifecycle function.
type RegisteredRunner struct {
	// NewInput returns a pointer to a fresh, hcl-tagged input struct, or nil
	// when the runner takes no arguments.
	NewInput func() any
	// Fn is the run handler: func(context.Context, *paths.PathFinder, *Input) error.
	Fn any
}

// Registry holds all the registered handlers and runner definitions for a
// single application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredRunner
	DefinitionRegistry map[string]*schema.RunnerDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredRunner),
		DefinitionRegistry: make(map[string]*schema.RunnerDefinition),
	}
}

// RegisterRunner registers a Go function for a runner's lifecycle event.
func (r *Registry) RegisterRunner(name string, handler *RegisteredRunner) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.HandlerRegistry[name] = handler
}

// PopulateDefinitionsFromModel copies the loaded runner manifests from the
// config model into the registry for easy access during execution.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Runners {
		r.DefinitionRegistry[key] = val
	}
}
