package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all top-level blocks a manifest file may contain.
type fileRoot struct {
	Processes []*processBlock  `hcl:"process,block"`
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// processBlock is a `process "<name>" {}` manifest.
type processBlock struct {
	Name        string            `hcl:"name,label"`
	Description string            `hcl:"description,optional"`
	Requires    []string          `hcl:"requires,optional"`
	Command     hcl.Expression    `hcl:"command,optional"`
	Runner      string            `hcl:"runner,optional"`
	Params      []*parameterBlock `hcl:"param,block"`
}

// parameterBlock is a `param "<name>" {}` block inside a process.
type parameterBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Optional    bool           `hcl:"optional,optional"`
	Output      bool           `hcl:"output,optional"`
	Complete    hcl.Expression `hcl:"complete,optional"`
}

// pipelineBlock is a `pipeline "<name>" {}` manifest.
type pipelineBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Nodes       []*nodeBlock   `hcl:"node,block"`
	Exports     []*exportBlock `hcl:"export,block"`
	Links       []*linkBlock   `hcl:"link,block"`
}

type nodeBlock struct {
	Name    string `hcl:"name,label"`
	Process string `hcl:"process"`
}

type exportBlock struct {
	Name        string `hcl:"name,label"`
	To          string `hcl:"to"`
	Description string `hcl:"description,optional"`
}

type linkBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}
