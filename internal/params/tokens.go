package params

import (
	"regexp"

	"github.com/vk/capsulrun/internal/parampath"
	"github.com/zclconf/go-cty/cty"
)

// namedArgRegex matches `name=value` tokens where name is an identifier,
// optionally followed by dot-separated segments addressing sub-processes.
var namedArgRegex = regexp.MustCompile(`^([a-zA-Z_](\.?[a-zA-Z0-9_])*)\s*=\s*(.*)$`)

// Assignment is a single `name=value` token.
type Assignment struct {
	Path  parampath.Path
	Value cty.Value
	Raw   string
}

// Arguments holds the partitioned command-line parameters of a process.
type Arguments struct {
	Positional []cty.Value
	Named      []Assignment
}

// Partition splits tokens into positional values and named assignments.
// Named assignments keep the order in which they were encountered; positional
// values keep their original relative order.
func Partition(tokens []string) *Arguments {
	args := &Arguments{}
	for _, tok := range tokens {
		if m := namedArgRegex.FindStringSubmatch(tok); m != nil {
			if path, err := parampath.Parse(m[1]); err == nil {
				args.Named = append(args.Named, Assignment{
					Path:  path,
					Value: ConvertToken(m[3]),
					Raw:   tok,
				})
				continue
			}
		}
		args.Positional = append(args.Positional, ConvertToken(tok))
	}
	return args
}

// ConvertToken opportunistically evaluates a token. Only `None`, `True`,
// `False` and tokens starting with `[`, `(` or `{` are parsed; a parse
// failure silently keeps the token as a string.
func ConvertToken(tok string) cty.Value {
	if !looksLikeLiteral(tok) {
		return cty.StringVal(tok)
	}
	v, err := ParseLiteral(tok)
	if err != nil {
		return cty.StringVal(tok)
	}
	return v
}

func looksLikeLiteral(tok string) bool {
	switch tok {
	case "None", "True", "False":
		return true
	case "":
		return false
	}
	switch tok[0] {
	case '[', '(', '{':
		return true
	}
	return false
}
