package iteration

import (
	"fmt"
	"strings"

	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/vk/capsulrun/internal/process"
	"github.com/zclconf/go-cty/cty"
)

// LengthMismatchError is returned by Expand when the assigned iterated
// sequences do not share one length.
type LengthMismatchError struct {
	Process string
	Names   []string
	Lengths []int
}

func (e *LengthMismatchError) Error() string {
	parts := make([]string, len(e.Names))
	for i, name := range e.Names {
		parts[i] = fmt.Sprintf("%s=%d", name, e.Lengths[i])
	}
	return fmt.Sprintf("IterationLengthMismatch: process %q: iterated parameters have different lengths (%s)",
		e.Process, strings.Join(parts, ", "))
}

// Iteration runs its inner process once per index of the iterated sequences.
// Non-iterated parameters are forwarded to the inner process and shared by
// every invocation.
type Iteration struct {
	inner    process.Process
	names    []string
	params   []*config.ParameterDefinition
	wrapped  map[string]*config.ParameterDefinition
	elements map[string]*config.ParameterDefinition
	values   map[string]cty.Value
	expanded []process.Process
}

var _ process.Process = (*Iteration)(nil)

// New wraps p, iterating over the named top-level parameters.
func New(p process.Process, names []string) (*Iteration, error) {
	it := &Iteration{
		inner:    p,
		wrapped:  make(map[string]*config.ParameterDefinition),
		elements: make(map[string]*config.ParameterDefinition),
		values:   make(map[string]cty.Value),
	}
	for _, name := range names {
		if _, dup := it.elements[name]; dup {
			continue
		}
		param, err := process.Lookup(p, parampath.Of(name))
		if err != nil {
			return nil, fmt.Errorf("cannot iterate over %q: %w", name, err)
		}
		it.names = append(it.names, name)
		it.elements[name] = param
	}
	for _, param := range p.Parameters() {
		elem, ok := it.elements[param.Name]
		if !ok {
			it.params = append(it.params, param)
			continue
		}
		seq := &config.ParameterDefinition{
			Name:        elem.Name,
			Type:        cty.List(elem.Type),
			Description: elem.Description,
			Optional:    true,
			Output:      elem.Output,
		}
		it.wrapped[param.Name] = seq
		it.params = append(it.params, seq)
	}
	return it, nil
}

func (it *Iteration) Name() string { return it.inner.Name() }

// Inner returns the wrapped process.
func (it *Iteration) Inner() process.Process { return it.inner }

// Iterated returns the iterated parameter names in request order.
func (it *Iteration) Iterated() []string { return it.names }

func (it *Iteration) Parameters() []*config.ParameterDefinition { return it.params }

func (it *Iteration) Get(path parampath.Path) (cty.Value, error) {
	if seq, ok := it.sequence(path); ok {
		if v, set := it.values[seq.Name]; set {
			return v, nil
		}
		return cty.NullVal(seq.Type), nil
	}
	return it.inner.Get(path)
}

func (it *Iteration) Set(path parampath.Path, val cty.Value) error {
	it.expanded = nil
	seq, ok := it.sequence(path)
	if !ok {
		return it.inner.Set(path, val)
	}
	v, err := process.Coerce(seq, val)
	if err != nil {
		return &process.ParameterError{Process: it.Name(), Path: path.String(), Err: err}
	}
	if v.IsNull() {
		delete(it.values, seq.Name)
		return nil
	}
	it.values[seq.Name] = v
	return nil
}

func (it *Iteration) Clone() process.Process {
	clone := &Iteration{
		inner:    it.inner.Clone(),
		names:    it.names,
		params:   it.params,
		wrapped:  it.wrapped,
		elements: it.elements,
		values:   make(map[string]cty.Value, len(it.values)),
	}
	for k, v := range it.values {
		clone.values[k] = v
	}
	for _, inv := range it.expanded {
		clone.expanded = append(clone.expanded, inv.Clone())
	}
	return clone
}

// Len returns the common length of the assigned iterated sequences. Zero
// when none is assigned.
func (it *Iteration) Len() (int, error) {
	var (
		names   []string
		lengths []int
	)
	for _, name := range it.names {
		v, ok := it.values[name]
		if !ok {
			continue
		}
		names = append(names, name)
		lengths = append(lengths, v.LengthInt())
	}
	for _, l := range lengths {
		if l != lengths[0] {
			return 0, &LengthMismatchError{Process: it.Name(), Names: names, Lengths: lengths}
		}
	}
	if len(lengths) == 0 {
		return 0, nil
	}
	return lengths[0], nil
}

// Invocations returns the result of the last Expand, or nil when values
// changed since.
func (it *Iteration) Invocations() []process.Process { return it.expanded }

// Expand returns one clone of the inner process per index, with element i of
// each assigned iterated sequence set on the i-th clone. The result is kept
// and returned by Invocations until the next Set.
func (it *Iteration) Expand() ([]process.Process, error) {
	n, err := it.Len()
	if err != nil {
		return nil, err
	}
	out := make([]process.Process, 0, n)
	for i := 0; i < n; i++ {
		p := it.inner.Clone()
		for _, name := range it.names {
			seq, ok := it.values[name]
			if !ok {
				continue
			}
			elem := seq.Index(cty.NumberIntVal(int64(i)))
			if err := p.Set(parampath.Of(name), elem); err != nil {
				return nil, fmt.Errorf("invocation %d: %w", i, err)
			}
		}
		out = append(out, p)
	}
	it.expanded = out
	return out, nil
}

func (it *Iteration) sequence(path parampath.Path) (*config.ParameterDefinition, bool) {
	if !path.IsLeaf() {
		return nil, false
	}
	seq, ok := it.wrapped[path.Head()]
	return seq, ok
}
