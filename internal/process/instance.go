package process

import (
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/zclconf/go-cty/cty"
)

// Instance is a leaf process created from a ProcessDefinition.
type Instance struct {
	def    *config.ProcessDefinition
	values map[string]cty.Value
}

var _ Process = (*Instance)(nil)

// NewInstance creates an instance with every parameter unset.
func NewInstance(def *config.ProcessDefinition) *Instance {
	return &Instance{
		def:    def,
		values: make(map[string]cty.Value),
	}
}

func (i *Instance) Name() string { return i.def.Name }

// Definition returns the definition the instance was created from.
func (i *Instance) Definition() *config.ProcessDefinition { return i.def }

func (i *Instance) Parameters() []*config.ParameterDefinition { return i.def.Parameters }

func (i *Instance) Get(path parampath.Path) (cty.Value, error) {
	param, err := i.lookup(path)
	if err != nil {
		return cty.NilVal, err
	}
	if v, ok := i.values[param.Name]; ok {
		return v, nil
	}
	return cty.NullVal(param.Type), nil
}

func (i *Instance) Set(path parampath.Path, val cty.Value) error {
	param, err := i.lookup(path)
	if err != nil {
		return err
	}
	v, err := Coerce(param, val)
	if err != nil {
		return &ParameterError{Process: i.Name(), Path: path.String(), Err: err}
	}
	if v.IsNull() {
		delete(i.values, param.Name)
		return nil
	}
	i.values[param.Name] = v
	return nil
}

// IsSet reports whether the named parameter holds a value.
func (i *Instance) IsSet(name string) bool {
	_, ok := i.values[name]
	return ok
}

// Values returns a copy of the assigned values.
func (i *Instance) Values() map[string]cty.Value {
	out := make(map[string]cty.Value, len(i.values))
	for k, v := range i.values {
		out[k] = v
	}
	return out
}

// Missing lists required parameters that are still unset, in signature order.
func (i *Instance) Missing() []string {
	var missing []string
	for _, p := range i.def.Parameters {
		if p.Required() && !i.IsSet(p.Name) {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

func (i *Instance) Clone() Process {
	return &Instance{def: i.def, values: i.Values()}
}

func (i *Instance) lookup(path parampath.Path) (*config.ParameterDefinition, error) {
	if path.IsLeaf() {
		if param, ok := i.def.Parameter(path.Head()); ok {
			return param, nil
		}
	}
	return nil, &ParameterError{Process: i.Name(), Path: path.String(), Err: ErrUnknownParameter}
}
