// Package fsl ships the manifests of the FSL command-line tools.
package fsl

import (
	_ "embed"

	"github.com/vk/capsulrun/internal/registry"
)

//go:embed fsl.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Register(r *registry.Registry) {
	r.RegisterManifest("fsl.hcl", manifest)
}
