// Package ctyconv converts cty values to the plain Go values used on the
// wire (JSON documents, socket.io payloads) and in logs.
package ctyconv

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// ToInterface converts a cty.Value to a Go interface{}. Whole numbers become
// int64, other numbers float64.
func ToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			bf := val.AsBigFloat()
			if bf.IsInt() {
				if i, acc := bf.Int64(); acc == big.Exact {
					return i, nil
				}
			}
			f, _ := bf.Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			elem, err := ToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = elem
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			elem, err := ToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}

// MapToInterface converts every value of a parameter map.
func MapToInterface(values map[string]cty.Value) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		conv, err := ToInterface(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = conv
	}
	return out, nil
}

// FormatForLogs converts a value to its loggable representation.
func FormatForLogs(v cty.Value) any {
	converted, err := ToInterface(v)
	if err != nil {
		return fmt.Sprintf("[unloggable cty.Value: %v]", err)
	}
	return converted
}
