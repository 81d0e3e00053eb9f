package registry

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/vk/capsulrun/internal/config"
)

// RunEnv is handed to Go runners in place of a subprocess environment.
type RunEnv struct {
	Stdout io.Writer
	Stderr io.Writer
}

// RegisteredRunner holds the compiled Go parts of a runner.
//
// Fn must have the signature
//
//	func(ctx context.Context, env *RunEnv, input *T) (any, error)
//
// where T is the struct returned by NewInput. Input fields are bound to
// parameters through `cty` struct tags.
type RegisteredRunner struct {
	NewInput  func() any
	InputType reflect.Type
	Fn        any
}

// RegisterRunner registers a Go function for a runner.
func (r *Registry) RegisterRunner(name string, handler *RegisteredRunner) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.HandlerRegistry[name] = handler
}

// RegisterManifest registers an embedded HCL manifest shipped by a module.
func (r *Registry) RegisterManifest(filename string, data []byte) {
	for _, m := range r.manifests {
		if m.Filename == filename {
			panic(fmt.Sprintf("manifest '%s' already registered", filename))
		}
	}
	slog.Debug("Registering manifest.", "file", filename)
	r.manifests = append(r.manifests, config.Source{Filename: filename, Data: data})
}

// Manifests returns the embedded manifests in registration order.
func (r *Registry) Manifests() []config.Source {
	return r.manifests
}
