// Package config defines the format-agnostic model of process and pipeline
// definitions, along with the Loader interface used to populate it.
//
// The `config.Model` is the single source of truth for the `registry`
// package. Concrete loaders, such as the HCL one, live in separate packages.
package config
