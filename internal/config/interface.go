package config

import "context"

// Source is an in-memory manifest, typically embedded by a Go module.
type Source struct {
	Filename string
	Data     []byte
}

// Loader is the interface for a format-specific definition loader.
type Loader interface {
	// Load parses the given in-memory sources and every manifest found
	// under paths, and merges them into a single model.
	Load(ctx context.Context, sources []Source, paths ...string) (*Model, error)
}
