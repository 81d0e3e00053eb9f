// Package process is the runtime model of processes: leaf instances created
// from a definition, and pipelines composed of named nodes. Parameter values
// are cty values converted to the declared parameter type on assignment, and
// are addressed with parampath.Path so that `node.param` reaches into
// pipelines without any dynamic attribute lookup.
package process
