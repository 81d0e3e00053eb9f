// Package app wires the registry, study configuration, builder and
// dispatcher together and runs a single process, decoupled from the CLI
// entrypoint.
package app
