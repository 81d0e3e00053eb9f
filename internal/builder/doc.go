/*
Package builder turns a process name and parsed command-line arguments into a
ready-to-run process.

GetProcessWithParams resolves the name through the registry, optionally wraps
the result in an iteration, assigns positional arguments in signature order
and then named arguments, expands iterations, and finally runs completion.
Each stage fails with its own error type so callers can tell a typo in the
process name from a bad value or an incomplete parameter set.
*/
package builder
