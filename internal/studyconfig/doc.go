// Package studyconfig holds the user-facing study configuration.
//
// StudyConfig is the single owner of the front-end settings. Per-tool
// config modules copy a fixed set of attributes to the engine with Apply and
// back from it with Refresh. Nothing is synchronised implicitly: callers that
// change one side call the matching method.
package studyconfig
