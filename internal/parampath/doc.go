/*
Package parampath provides a structured representation for parameter
addresses used on the command line and in pipeline definitions.

The format is a dot-separated sequence of segments, e.g.
`PrepareSubject.t1mri`. All but the last segment name sub-processes of a
pipeline; the last segment names a parameter.

This package centralizes the parsing and formatting of those addresses so
that processes never have to split strings themselves.
*/
package parampath
