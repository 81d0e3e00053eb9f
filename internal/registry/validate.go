package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ValidateRegistry performs a strict parity check between manifests and Go
// code. Every runner named by a process must be registered, and its input
// struct must declare exactly the process parameters with compatible types.
// Pipelines must only reference known processes, and a name may not be
// defined both as a process and as a pipeline.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for name, def := range r.ProcessRegistry {
		if def.Runner == "" {
			continue
		}
		handler, ok := r.HandlerRegistry[def.Runner]
		if !ok {
			errs = append(errs, fmt.Sprintf("process '%s': runner '%s' is not registered", name, def.Runner))
			continue
		}

		if handler.InputType == nil {
			if len(def.Parameters) > 0 {
				errs = append(errs, fmt.Sprintf("process '%s': manifest declares parameters, but Go handler has no input struct", name))
			}
			continue
		}

		goInputs := StructFields(handler.InputType)
		declared := make(map[string]struct{}, len(def.Parameters))
		for _, p := range def.Parameters {
			declared[p.Name] = struct{}{}
		}

		// Check for presence mismatches
		for field := range goInputs {
			if _, ok := declared[field]; !ok {
				errs = append(errs, fmt.Sprintf("process '%s': Go struct has field for parameter '%s' which is not declared in manifest", name, field))
			}
		}

		for _, param := range def.Parameters {
			goField, ok := goInputs[param.Name]
			if !ok {
				errs = append(errs, fmt.Sprintf("process '%s': manifest declares parameter '%s' which is not found in Go struct", name, param.Name))
				continue
			}
			if param.Type.Equals(cty.DynamicPseudoType) {
				logger.Warn("Manifest for process has parameter with 'type = any', which disables static type checking.", "process", name, "parameter", param.Name)
				continue
			}
			fieldType := goField.Type
			if fieldType.Kind() == reflect.Ptr {
				fieldType = fieldType.Elem()
			}
			goType, err := gocty.ImpliedType(reflect.Zero(fieldType).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("process '%s', parameter '%s': could not imply cty type from Go field type %s: %v", name, param.Name, goField.Type, err))
				continue
			}
			if !param.Type.Equals(goType) {
				errs = append(errs, fmt.Sprintf("process '%s', parameter '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides '%s'",
					name, param.Name, param.Type.FriendlyName(), goField.Name, goType.FriendlyName()))
			}
		}
	}

	for name, def := range r.PipelineRegistry {
		if _, clash := r.ProcessRegistry[name]; clash {
			errs = append(errs, fmt.Sprintf("pipeline '%s': name is already defined as a process", name))
		}
		for _, node := range def.Nodes {
			if !r.has(node.Process) {
				errs = append(errs, fmt.Sprintf("pipeline '%s': node '%s' references unknown process '%s'", name, node.Name, node.Process))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// StructFields indexes the exported fields of an input struct by their `cty`
// tag name.
func StructFields(t reflect.Type) map[string]reflect.StructField {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	fields := make(map[string]reflect.StructField)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("cty"), ",")[0]
		if tagName != "" && tagName != "-" {
			fields[tagName] = field
		}
	}
	return fields
}

func (r *Registry) has(name string) bool {
	if _, ok := r.ProcessRegistry[name]; ok {
		return true
	}
	_, ok := r.PipelineRegistry[name]
	return ok
}
