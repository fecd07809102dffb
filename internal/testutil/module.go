package testutil

import "github.com/vk/catwalk/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single runner handler.
type SimpleModule struct {
	RunnerName string
	Runner     *registry.RegisteredRunner
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.RunnerName != "" && m.Runner != nil {
		r.RegisterRunner(m.RunnerName, m.Runner)
	}
}
