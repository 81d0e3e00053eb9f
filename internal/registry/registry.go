package registry

import (
	"github.com/vk/capsulrun/internal/config"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered handlers, manifests, and definitions for
// a single application instance.
type Registry struct {
	HandlerRegistry  map[string]*RegisteredRunner
	ProcessRegistry  map[string]*config.ProcessDefinition
	PipelineRegistry map[string]*config.PipelineDefinition
	manifests        []config.Source
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:  make(map[string]*RegisteredRunner),
		ProcessRegistry:  make(map[string]*config.ProcessDefinition),
		PipelineRegistry: make(map[string]*config.PipelineDefinition),
	}
}

// PopulateDefinitionsFromModel copies the loaded definitions from the config
// model into the registry for easy access during execution.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Processes {
		r.ProcessRegistry[key] = val
	}
	for key, val := range model.Pipelines {
		r.PipelineRegistry[key] = val
	}
}

// Names returns every resolvable process and pipeline name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ProcessRegistry)+len(r.PipelineRegistry))
	for name := range r.ProcessRegistry {
		names = append(names, name)
	}
	for name := range r.PipelineRegistry {
		names = append(names, name)
	}
	return names
}
