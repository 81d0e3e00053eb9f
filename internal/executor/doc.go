// Package executor runs a process tree synchronously on the local machine.
//
// Plan flattens the tree into steps: pipeline nodes run in declaration order,
// each depending on the previous node, while the invocations of an iteration
// are independent. Leaf processes are either external commands, run with
// os/exec inside the environment contributed by the engine modules they
// require, or Go runners called through the registry.
package executor
