package process

import (
	"errors"
	"fmt"

	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var (
	// ErrUnknownParameter is returned when a path does not name a parameter.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrInvalidValue is returned when a value cannot be converted to the
	// declared parameter type.
	ErrInvalidValue = errors.New("invalid parameter value")
)

// ParameterError reports a failed parameter access on a process.
type ParameterError struct {
	Process string
	Path    string
	Err     error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("process %q: parameter %q: %v", e.Process, e.Path, e.Err)
}

func (e *ParameterError) Unwrap() error { return e.Err }

// Process is anything that can be parameterized and run: a leaf instance, a
// pipeline, or an iteration over either.
type Process interface {
	// Name is the registry name the process was created from.
	Name() string
	// Parameters returns the ordered signature. Positional command-line
	// arguments are assigned in this order.
	Parameters() []*config.ParameterDefinition
	// Get returns the current value; unset parameters yield a typed null.
	Get(path parampath.Path) (cty.Value, error)
	// Set converts and assigns a value. Assigning null unsets.
	Set(path parampath.Path, val cty.Value) error
	// Clone returns a deep copy carrying the same values.
	Clone() Process
}

// Coerce converts val to the declared type of param.
func Coerce(param *config.ParameterDefinition, val cty.Value) (cty.Value, error) {
	if val.IsNull() {
		return cty.NullVal(param.Type), nil
	}
	converted, err := convert.Convert(val, param.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%w: cannot use %s as %s: %v",
			ErrInvalidValue, val.Type().FriendlyName(), param.Type.FriendlyName(), err)
	}
	return converted, nil
}

// Lookup resolves the definition of the parameter addressed by path.
func Lookup(p Process, path parampath.Path) (*config.ParameterDefinition, error) {
	if len(path) == 0 {
		return nil, &ParameterError{Process: p.Name(), Path: "", Err: ErrUnknownParameter}
	}
	if path.IsLeaf() {
		for _, param := range p.Parameters() {
			if param.Name == path.Head() {
				return param, nil
			}
		}
		return nil, &ParameterError{Process: p.Name(), Path: path.String(), Err: ErrUnknownParameter}
	}
	pipe, ok := p.(*Pipeline)
	if !ok {
		return nil, &ParameterError{Process: p.Name(), Path: path.String(), Err: ErrUnknownParameter}
	}
	node, ok := pipe.Node(path.Head())
	if !ok {
		return nil, &ParameterError{Process: p.Name(), Path: path.String(), Err: ErrUnknownParameter}
	}
	return Lookup(node.Process, path.Tail())
}
