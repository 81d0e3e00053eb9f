package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of every process and
// pipeline known to the application.
type Model struct {
	Processes map[string]*ProcessDefinition
	Pipelines map[string]*PipelineDefinition
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Processes: make(map[string]*ProcessDefinition),
		Pipelines: make(map[string]*PipelineDefinition),
	}
}

// ProcessDefinition describes a leaf process: its ordered signature and how
// it is executed.
type ProcessDefinition struct {
	Name        string
	Description string
	// Requires lists the engine modules (e.g. "fsl", "matlab") the process
	// needs in its environment.
	Requires []string
	// Command evaluates to the argv of the external tool. Nil when the
	// process is implemented by a Go runner.
	Command hcl.Expression
	// Runner names a registered Go handler. Empty for command processes.
	Runner     string
	Parameters []*ParameterDefinition
	Source     string
}

// Parameter looks up a parameter by name.
func (d *ProcessDefinition) Parameter(name string) (*ParameterDefinition, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ParameterDefinition defines a single parameter of a process.
type ParameterDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
	// Output marks parameters naming files the process writes.
	Output bool
	// Path marks `file` and `directory` parameters.
	Path bool
	// Complete is a template evaluated by the completion engine when the
	// parameter is left unset. Nil when absent.
	Complete hcl.Expression
}

// Required reports whether the parameter must hold a value before running.
func (p *ParameterDefinition) Required() bool {
	return !p.Optional && p.Default == nil
}

// PipelineDefinition describes a composite process.
type PipelineDefinition struct {
	Name        string
	Description string
	Nodes       []*NodeDefinition
	Exports     []*ExportDefinition
	Links       []*LinkDefinition
	Source      string
}

// NodeDefinition is a named sub-process of a pipeline.
type NodeDefinition struct {
	Name    string
	Process string
}

// ExportDefinition exposes a node parameter as a pipeline parameter.
type ExportDefinition struct {
	Name        string
	To          string
	Description string
}

// LinkDefinition copies the value of one node parameter into another during
// completion.
type LinkDefinition struct {
	From string
	To   string
}
