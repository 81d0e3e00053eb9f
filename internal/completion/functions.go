package completion

import (
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// BasenameFunc returns the last element of a path.
var BasenameFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "path", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(filepath.Base(args[0].AsString())), nil
	},
})

// DirnameFunc returns all but the last element of a path.
var DirnameFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "path", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(filepath.Dir(args[0].AsString())), nil
	},
})

// StemFunc returns the base name without any extension, so that
// "t1.nii.gz" becomes "t1".
var StemFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "path", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(stem(args[0].AsString())), nil
	},
})

// JoinPathFunc joins path elements with the OS separator.
var JoinPathFunc = function.New(&function.Spec{
	VarParam: &function.Parameter{Name: "elem", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.AsString()
		}
		return cty.StringVal(filepath.Join(parts...)), nil
	},
})

func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base[1:], "."); i >= 0 {
		return base[:i+1]
	}
	return base
}

// Functions returns the function table available to templates.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"basename":      BasenameFunc,
		"dirname":       DirnameFunc,
		"stem":          StemFunc,
		"joinpath":      JoinPathFunc,
		"upper":         stdlib.UpperFunc,
		"lower":         stdlib.LowerFunc,
		"replace":       stdlib.ReplaceFunc,
		"regex_replace": stdlib.RegexReplaceFunc,
		"format":        stdlib.FormatFunc,
		"join":          stdlib.JoinFunc,
		"split":         stdlib.SplitFunc,
		"concat":        stdlib.ConcatFunc,
		"length":        stdlib.LengthFunc,
		"trimprefix":    stdlib.TrimPrefixFunc,
		"trimsuffix":    stdlib.TrimSuffixFunc,
		"coalesce":      stdlib.CoalesceFunc,
	}
}
