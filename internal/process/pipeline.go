package process

import (
	"errors"
	"fmt"

	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/zclconf/go-cty/cty"
)

// ErrInvalidPipeline is returned when a pipeline definition references nodes
// or parameters that do not exist.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// Node is a named sub-process of a pipeline.
type Node struct {
	Name    string
	Process Process
}

// Link copies a node parameter into another one during completion.
type Link struct {
	From parampath.Path
	To   parampath.Path
}

type export struct {
	param  *config.ParameterDefinition
	target parampath.Path
}

// Pipeline is a composite process. Its own parameters are the exported node
// parameters; any node parameter can also be reached as `node.param`.
type Pipeline struct {
	def     *config.PipelineDefinition
	nodes   []*Node
	exports []*export
	links   []Link
}

var _ Process = (*Pipeline)(nil)

// NewPipeline assembles a pipeline from its definition and already
// instantiated nodes, given in definition order.
func NewPipeline(def *config.PipelineDefinition, nodes []*Node) (*Pipeline, error) {
	p := &Pipeline{def: def, nodes: nodes}

	for _, e := range def.Exports {
		target, err := parampath.Parse(e.To)
		if err != nil {
			return nil, fmt.Errorf("%w %q: export %q: %v", ErrInvalidPipeline, def.Name, e.Name, err)
		}
		if target.IsLeaf() {
			return nil, fmt.Errorf("%w %q: export %q must target a node parameter", ErrInvalidPipeline, def.Name, e.Name)
		}
		param, err := Lookup(p, target)
		if err != nil {
			return nil, fmt.Errorf("%w %q: export %q: %v", ErrInvalidPipeline, def.Name, e.Name, err)
		}
		exported := *param
		exported.Name = e.Name
		if e.Description != "" {
			exported.Description = e.Description
		}
		p.exports = append(p.exports, &export{param: &exported, target: target})
	}

	for _, l := range def.Links {
		from, err := parampath.Parse(l.From)
		if err != nil {
			return nil, fmt.Errorf("%w %q: link source: %v", ErrInvalidPipeline, def.Name, err)
		}
		to, err := parampath.Parse(l.To)
		if err != nil {
			return nil, fmt.Errorf("%w %q: link destination: %v", ErrInvalidPipeline, def.Name, err)
		}
		for _, end := range []parampath.Path{from, to} {
			if _, err := Lookup(p, end); err != nil || end.IsLeaf() {
				return nil, fmt.Errorf("%w %q: link endpoint %q is not a node parameter", ErrInvalidPipeline, def.Name, end)
			}
		}
		p.links = append(p.links, Link{From: from, To: to})
	}
	return p, nil
}

func (p *Pipeline) Name() string { return p.def.Name }

// Definition returns the definition the pipeline was created from.
func (p *Pipeline) Definition() *config.PipelineDefinition { return p.def }

// Nodes returns the nodes in definition order.
func (p *Pipeline) Nodes() []*Node { return p.nodes }

// Links returns the parsed links in definition order.
func (p *Pipeline) Links() []Link { return p.links }

// Node finds a node by name.
func (p *Pipeline) Node(name string) (*Node, bool) {
	for _, n := range p.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

func (p *Pipeline) Parameters() []*config.ParameterDefinition {
	params := make([]*config.ParameterDefinition, 0, len(p.exports))
	for _, e := range p.exports {
		params = append(params, e.param)
	}
	return params
}

func (p *Pipeline) Get(path parampath.Path) (cty.Value, error) {
	target, node, err := p.resolve(path)
	if err != nil {
		return cty.NilVal, err
	}
	return node.Process.Get(target)
}

func (p *Pipeline) Set(path parampath.Path, val cty.Value) error {
	target, node, err := p.resolve(path)
	if err != nil {
		return err
	}
	if err := node.Process.Set(target, val); err != nil {
		var perr *ParameterError
		if errors.As(err, &perr) {
			return &ParameterError{Process: p.Name(), Path: path.String(), Err: perr.Err}
		}
		return err
	}
	return nil
}

func (p *Pipeline) Clone() Process {
	clone := &Pipeline{def: p.def, exports: p.exports, links: p.links}
	for _, n := range p.nodes {
		clone.nodes = append(clone.nodes, &Node{Name: n.Name, Process: n.Process.Clone()})
	}
	return clone
}

// resolve maps a pipeline-level path to a node and the path inside it.
// Exported names are followed to their target first.
func (p *Pipeline) resolve(path parampath.Path) (parampath.Path, *Node, error) {
	if path.IsLeaf() {
		for _, e := range p.exports {
			if e.param.Name == path.Head() {
				path = e.target
				break
			}
		}
	}
	if path.IsLeaf() || len(path) == 0 {
		return nil, nil, &ParameterError{Process: p.Name(), Path: path.String(), Err: ErrUnknownParameter}
	}
	node, ok := p.Node(path.Head())
	if !ok {
		return nil, nil, &ParameterError{Process: p.Name(), Path: path.String(), Err: ErrUnknownParameter}
	}
	return path.Tail(), node, nil
}
