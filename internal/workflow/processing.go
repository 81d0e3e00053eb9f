package workflow

import (
	"errors"
	"fmt"
)

// Mode selects how files are made available to jobs on a resource.
type Mode string

const (
	// LocalPath uses paths unchanged.
	LocalPath Mode = "local_path"
	// Transfer copies files to and from the resource.
	Transfer Mode = "transfer"
	// Translate rewrites paths to their location on the resource.
	Translate Mode = "translate"
	// TranslateShared rewrites paths using the shared study directories.
	TranslateShared Mode = "translate_shared"
)

// ErrInvalidFileProcessing is returned for unknown or disallowed modes.
var ErrInvalidFileProcessing = errors.New("invalid file processing mode")

// FileProcessing holds the input and output modes of a workflow.
type FileProcessing struct {
	Input  Mode
	Output Mode
}

// ParseFileProcessing validates the requested modes. Empty values take the
// defaults: input is local_path on localhost and translate_shared elsewhere,
// output is local_path.
func ParseFileProcessing(input, output, resourceID string) (FileProcessing, error) {
	fp := FileProcessing{Input: Mode(input), Output: Mode(output)}
	if fp.Input == "" {
		fp.Input = TranslateShared
		if resourceID == "" || resourceID == "localhost" {
			fp.Input = LocalPath
		}
	}
	if fp.Output == "" {
		fp.Output = LocalPath
	}
	switch fp.Input {
	case LocalPath, Transfer, Translate, TranslateShared:
	default:
		return FileProcessing{}, fmt.Errorf("%w: input %q", ErrInvalidFileProcessing, input)
	}
	switch fp.Output {
	case LocalPath, Transfer, Translate:
	default:
		return FileProcessing{}, fmt.Errorf("%w: output %q", ErrInvalidFileProcessing, output)
	}
	return fp, nil
}
