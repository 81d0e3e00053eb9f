// Package completion fills in parameters left unset on the command line.
//
// Each parameter may carry a `complete` template in its manifest. The
// TemplateEngine evaluates those templates against the values already
// assigned to the process and the study configuration, so that, for
// example, an output path can be derived from the input path and the study
// output directory.
package completion
