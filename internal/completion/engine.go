package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/iteration"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/vk/capsulrun/internal/process"
	"github.com/zclconf/go-cty/cty"
)

// Engine completes the parameters of a process tree in place.
type Engine interface {
	CompleteParameters(ctx context.Context, p process.Process) error
}

// Variables provides the `study` object visible to templates.
type Variables interface {
	Variables() map[string]cty.Value
}

// MissingParametersError lists required parameters that are still unset
// after completion, as dotted paths.
type MissingParametersError struct {
	Process string
	Missing []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("process %q: missing required parameters: %s", e.Process, strings.Join(e.Missing, ", "))
}

// TemplateEngine evaluates `complete` templates from the manifests.
type TemplateEngine struct {
	study Variables
}

var _ Engine = (*TemplateEngine)(nil)

// NewTemplateEngine creates an engine. study may be nil.
func NewTemplateEngine(study Variables) *TemplateEngine {
	return &TemplateEngine{study: study}
}

// CompleteParameters fills unset parameters, then fails with
// *MissingParametersError if a required one is still unset.
func (e *TemplateEngine) CompleteParameters(ctx context.Context, p process.Process) error {
	missing, err := e.complete(ctx, p, nil)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &MissingParametersError{Process: p.Name(), Missing: missing}
	}
	return nil
}

func (e *TemplateEngine) complete(ctx context.Context, p process.Process, prefix parampath.Path) ([]string, error) {
	switch proc := p.(type) {
	case *process.Instance:
		return e.completeInstance(ctx, proc, prefix)
	case *process.Pipeline:
		return e.completePipeline(ctx, proc, prefix)
	case *iteration.Iteration:
		return e.completeIteration(ctx, proc, prefix)
	default:
		return nil, fmt.Errorf("cannot complete process %q of type %T", p.Name(), p)
	}
}

func (e *TemplateEngine) completeIteration(ctx context.Context, it *iteration.Iteration, prefix parampath.Path) ([]string, error) {
	invocations := it.Invocations()
	if invocations == nil {
		var err error
		if invocations, err = it.Expand(); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]struct{})
	var missing []string
	for i, inv := range invocations {
		m, err := e.complete(ctx, inv, prefix)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		for _, name := range m {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				missing = append(missing, name)
			}
		}
	}
	return missing, nil
}

func (e *TemplateEngine) completePipeline(ctx context.Context, pipe *process.Pipeline, prefix parampath.Path) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var missing []string
	for _, node := range pipe.Nodes() {
		for _, link := range pipe.Links() {
			if link.To.Head() != node.Name {
				continue
			}
			current, err := pipe.Get(link.To)
			if err != nil {
				return nil, err
			}
			if !current.IsNull() {
				continue
			}
			val, err := pipe.Get(link.From)
			if err != nil {
				return nil, err
			}
			if val.IsNull() {
				continue
			}
			logger.Debug("Applying pipeline link.", "pipeline", pipe.Name(), "from", link.From.String(), "to", link.To.String())
			if err := pipe.Set(link.To, val); err != nil {
				return nil, err
			}
		}
		m, err := e.complete(ctx, node.Process, append(append(parampath.Path{}, prefix...), node.Name))
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}
		missing = append(missing, m...)
	}
	return missing, nil
}

func (e *TemplateEngine) completeInstance(ctx context.Context, inst *process.Instance, prefix parampath.Path) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("process", inst.Name())
	params := inst.Parameters()

	for progress := true; progress; {
		progress = false
		for _, param := range params {
			if inst.IsSet(param.Name) {
				continue
			}
			if param.Complete == nil {
				if param.Default != nil {
					if err := inst.Set(parampath.Of(param.Name), *param.Default); err != nil {
						return nil, err
					}
					progress = true
				}
				continue
			}
			if !e.ready(inst, param.Complete) {
				continue
			}
			val, err := e.evaluate(inst, param)
			if err != nil {
				return nil, err
			}
			if val.IsNull() {
				continue
			}
			logger.Debug("Completed parameter.", "parameter", param.Name)
			if err := inst.Set(parampath.Of(param.Name), val); err != nil {
				return nil, err
			}
			progress = true
		}
	}

	// Templates blocked on unset parameters fall back to the default.
	for _, param := range params {
		if !inst.IsSet(param.Name) && param.Default != nil {
			if err := inst.Set(parampath.Of(param.Name), *param.Default); err != nil {
				return nil, err
			}
		}
	}

	var missing []string
	for _, name := range inst.Missing() {
		missing = append(missing, append(append(parampath.Path{}, prefix...), name).String())
	}
	return missing, nil
}

// ready reports whether every parameter the template refers to is set.
func (e *TemplateEngine) ready(inst *process.Instance, expr hcl.Expression) bool {
	for _, traversal := range expr.Variables() {
		root := traversal.RootName()
		if _, isParam := inst.Definition().Parameter(root); isParam && !inst.IsSet(root) {
			return false
		}
	}
	return true
}

func (e *TemplateEngine) evaluate(inst *process.Instance, param *config.ParameterDefinition) (cty.Value, error) {
	val, diags := param.Complete.Value(e.EvalContext(inst.Values()))
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("parameter %q: completion template: %w", param.Name, diags)
	}
	return val, nil
}

// EvalContext builds the evaluation context for templates over the given
// parameter values.
func (e *TemplateEngine) EvalContext(values map[string]cty.Value) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(values)+1)
	for k, v := range values {
		vars[k] = v
	}
	study := map[string]cty.Value{}
	if e.study != nil {
		study = e.study.Variables()
	}
	vars["study"] = cty.ObjectVal(study)
	return &hcl.EvalContext{Variables: vars, Functions: Functions()}
}
