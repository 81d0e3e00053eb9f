package builder

import (
	"context"
	"fmt"

	"github.com/vk/capsulrun/internal/completion"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/iteration"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/vk/capsulrun/internal/params"
	"github.com/vk/capsulrun/internal/process"
)

// Resolver creates fresh process instances by name.
type Resolver interface {
	GetProcessInstance(name string) (process.Process, error)
}

// Builder prepares processes for execution.
type Builder struct {
	resolver   Resolver
	completion completion.Engine
}

// New creates a builder. A nil completion engine skips completion.
func New(resolver Resolver, engine completion.Engine) *Builder {
	return &Builder{resolver: resolver, completion: engine}
}

// GetProcessWithParams resolves name, applies args and runs completion.
// When iterated is non-empty the result is an *iteration.Iteration over
// those parameters, already expanded.
func (b *Builder) GetProcessWithParams(ctx context.Context, name string, iterated []string, args *params.Arguments) (process.Process, error) {
	logger := ctxlog.FromContext(ctx).With("process", name)

	p, err := b.resolver.GetProcessInstance(name)
	if err != nil {
		return nil, &ProcessResolutionError{Name: name, Err: err}
	}
	logger.Debug("Process resolved.", "parameters", len(p.Parameters()))

	var it *iteration.Iteration
	if len(iterated) > 0 {
		if it, err = iteration.New(p, iterated); err != nil {
			return nil, &ParameterAssignmentError{Process: name, Argument: "iteration", Err: err}
		}
		p = it
		logger.Debug("Process wrapped in iteration.", "iterated", iterated)
	}

	if args != nil {
		if err := assign(p, args); err != nil {
			return nil, err
		}
	}

	if it != nil {
		invocations, err := it.Expand()
		if err != nil {
			return nil, err
		}
		if len(invocations) == 0 {
			logger.Warn("⚠️ Iteration has no values, nothing will run.", "iterated", iterated)
		} else {
			logger.Debug("Iteration expanded.", "invocations", len(invocations))
		}
	}

	if b.completion != nil {
		if err := b.completion.CompleteParameters(ctx, p); err != nil {
			return nil, &CompletionError{Process: name, Err: err}
		}
	}
	return p, nil
}

// assign sets positionals in signature order, then named values, so that a
// named value overrides a positional one for the same parameter.
func assign(p process.Process, args *params.Arguments) error {
	signature := p.Parameters()
	if len(args.Positional) > len(signature) {
		return &ParameterAssignmentError{
			Process:  p.Name(),
			Argument: fmt.Sprintf("%d positional arguments", len(args.Positional)),
			Err:      fmt.Errorf("%w: process takes %d", ErrTooManyPositionals, len(signature)),
		}
	}
	for i, val := range args.Positional {
		param := signature[i]
		if err := p.Set(parampath.Of(param.Name), val); err != nil {
			return &ParameterAssignmentError{
				Process:  p.Name(),
				Argument: fmt.Sprintf("positional argument %d (%s)", i+1, param.Name),
				Err:      err,
			}
		}
	}
	for _, a := range args.Named {
		if err := p.Set(a.Path, a.Value); err != nil {
			return &ParameterAssignmentError{Process: p.Name(), Argument: a.Path.String(), Err: err}
		}
	}
	return nil
}
