package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/capsulrun/internal/process"
)

var (
	// ErrProcessNotFound is returned when no process or pipeline has the
	// requested name.
	ErrProcessNotFound = errors.New("process not found")
	// ErrCycle is returned when a pipeline contains itself.
	ErrCycle = errors.New("pipeline cycle")
)

// GetProcessInstance creates a fresh, unassigned process tree for name.
func (r *Registry) GetProcessInstance(name string) (process.Process, error) {
	return r.instantiate(name, nil)
}

func (r *Registry) instantiate(name string, stack []string) (process.Process, error) {
	for _, s := range stack {
		if s == name {
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(stack, name), " -> "))
		}
	}
	if def, ok := r.ProcessRegistry[name]; ok {
		return process.NewInstance(def), nil
	}
	def, ok := r.PipelineRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProcessNotFound, name)
	}
	stack = append(stack, name)
	nodes := make([]*process.Node, 0, len(def.Nodes))
	for _, n := range def.Nodes {
		child, err := r.instantiate(n.Process, stack)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q node %q: %w", name, n.Name, err)
		}
		nodes = append(nodes, &process.Node{Name: n.Name, Process: child})
	}
	return process.NewPipeline(def, nodes)
}
