// Package cli turns the runprocess command line into an app.Config. Flags
// end at the process name; everything after it is handed to the process as
// parameter tokens. Usage errors are reported as *ExitError with code 2.
package cli
