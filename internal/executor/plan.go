package executor

import (
	"fmt"

	"github.com/vk/capsulrun/internal/iteration"
	"github.com/vk/capsulrun/internal/process"
)

// Step is a single leaf process ready to run.
type Step struct {
	// ID is unique within a plan, e.g. "pipe.node[2]".
	ID        string
	Instance  *process.Instance
	DependsOn []string
}

// Plan flattens p into steps in a valid execution order.
func Plan(p process.Process) ([]*Step, error) {
	var steps []*Step
	if _, err := plan(p, p.Name(), nil, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// plan appends the steps of p and returns the IDs of its terminal steps.
func plan(p process.Process, id string, deps []string, steps *[]*Step) ([]string, error) {
	switch proc := p.(type) {
	case *process.Instance:
		*steps = append(*steps, &Step{ID: id, Instance: proc, DependsOn: deps})
		return []string{id}, nil
	case *process.Pipeline:
		last := deps
		for _, node := range proc.Nodes() {
			var err error
			if last, err = plan(node.Process, id+"."+node.Name, last, steps); err != nil {
				return nil, err
			}
		}
		return last, nil
	case *iteration.Iteration:
		invocations := proc.Invocations()
		if invocations == nil {
			var err error
			if invocations, err = proc.Expand(); err != nil {
				return nil, err
			}
		}
		var last []string
		for i, inv := range invocations {
			terminal, err := plan(inv, fmt.Sprintf("%s[%d]", id, i), deps, steps)
			if err != nil {
				return nil, err
			}
			last = append(last, terminal...)
		}
		return last, nil
	default:
		return nil, fmt.Errorf("cannot plan process %q of type %T", p.Name(), p)
	}
}
