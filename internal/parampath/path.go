package parampath

import (
	"fmt"
	"regexp"
	"strings"
)

// Path is the parsed form of a dotted parameter address.
type Path []string

var (
	headRegex    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// Parse creates a new Path by parsing its canonical string representation.
// The first segment must be an identifier; later segments may start with a
// digit, matching what the command line accepts.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("parameter path cannot be empty")
	}

	segments := strings.Split(raw, ".")
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("parameter path %q contains empty segment", raw)
		}
		re := segmentRegex
		if i == 0 {
			re = headRegex
		}
		if !re.MatchString(seg) {
			return nil, fmt.Errorf("invalid path segment %q in %q", seg, raw)
		}
	}
	return Path(segments), nil
}

// MustParse is like Parse but panics on error. Intended for literals in code
// and tests.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Of builds a Path from already validated segments.
func Of(segments ...string) Path {
	return Path(segments)
}

// String serializes the Path into its canonical dotted representation.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Head returns the first segment, or "" for an empty path.
func (p Path) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Tail returns the path without its first segment.
func (p Path) Tail() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[1:]
}

// IsLeaf reports whether the path addresses a parameter directly, without
// going through a sub-process.
func (p Path) IsLeaf() bool {
	return len(p) == 1
}

// Equal checks two paths segment by segment.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
