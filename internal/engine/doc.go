// Package engine holds the engine-side configuration of the external tool
// environments (FSL, Matlab) and of the workflow manager.
//
// Each module is loaded and initialised from the host environment exactly
// once. The study configuration mirrors a subset of these settings; see
// package studyconfig.
package engine
