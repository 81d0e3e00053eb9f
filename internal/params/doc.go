// Package params turns raw command-line tokens into process parameter values.
//
// Tokens of the shape `name=value` (where name may be a dotted path into a
// pipeline) become named assignments; every other token is positional. Values
// that look like literals (`None`, `True`, `False`, or anything starting with
// a bracket, brace or parenthesis) are parsed with a literal-only parser;
// anything else, including literals that fail to parse, is kept verbatim as a
// string. Nothing is ever evaluated as code.
package params
