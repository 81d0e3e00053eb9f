// Package matlab ships the manifest of the Matlab batch runner.
package matlab

import (
	_ "embed"

	"github.com/vk/capsulrun/internal/registry"
)

//go:embed matlab.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Register(r *registry.Registry) {
	r.RegisterManifest("matlab.hcl", manifest)
}
