// Package registry provides the central "glue" for the module system.
//
// The Registry maps the runner identifiers used in manifests (e.g.
// "OnRunPrint") to compiled Go handlers, and holds the parsed,
// format-agnostic process and pipeline definitions. Processes are resolved
// by name through GetProcessInstance, which returns a fresh, unassigned
// process tree.
//
// During application startup the registry is populated and then validated
// so that Go code and manifests stay in sync.
package registry
