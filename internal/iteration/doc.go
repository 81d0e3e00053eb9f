// Package iteration wraps a process so that selected parameters take
// sequences of values, one element per sub-invocation.
package iteration
