// Package workflow describes processes submitted to a workflow manager and
// the controllers that execute them on a computing resource.
//
// A Workflow is built from an execution plan: every step becomes a job that
// carries either a resolved command line or the name of a Go runner, its
// parameters in JSON form, and the jobs it depends on. Controllers are
// implemented by the localresource (SQLite-backed, in-process) and
// remoteresource (socket.io) packages.
package workflow
