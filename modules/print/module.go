package print

import (
	"context"
	_ "embed"
	"fmt"
	"reflect"
	"sort"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/registry"
)

//go:embed print.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print runner.
type Input struct {
	Value map[string]string `cty:"input"`
	Label *string           `cty:"label"`
}

// OnRunPrint is the handler for the 'print' runner.
func OnRunPrint(ctx context.Context, env *registry.RunEnv, input *Input) (any, error) {
	ctxlog.FromContext(ctx).Info("Printing input")

	if input.Label != nil {
		fmt.Fprintf(env.Stdout, "%s:\n", *input.Label)
	}
	if input.Value == nil {
		fmt.Fprintln(env.Stdout, "      (null)")
		return nil, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Value))
	for k := range input.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(env.Stdout, "      %s = %q\n", k, input.Value[k])
	}

	return len(keys), nil
}

// Register registers the handler and its manifest.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunPrint", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunPrint,
	})
	r.RegisterManifest("print.hcl", manifest)
}
