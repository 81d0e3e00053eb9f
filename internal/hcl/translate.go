package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translateProcess converts the HCL-specific process schema into the agnostic model.
func (l *Loader) translateProcess(ctx context.Context, s *processBlock) (*config.ProcessDefinition, error) {
	logger := ctxlog.FromContext(ctx)

	def := &config.ProcessDefinition{
		Name:        s.Name,
		Description: s.Description,
		Requires:    s.Requires,
		Runner:      s.Runner,
	}
	if !isAbsent(s.Command) {
		def.Command = s.Command
	}
	switch {
	case def.Command == nil && def.Runner == "":
		return nil, fmt.Errorf("either 'command' or 'runner' must be set")
	case def.Command != nil && def.Runner != "":
		return nil, fmt.Errorf("'command' and 'runner' are mutually exclusive")
	}

	seen := make(map[string]struct{}, len(s.Params))
	for _, in := range s.Params {
		if _, dup := seen[in.Name]; dup {
			return nil, fmt.Errorf("parameter %q declared twice", in.Name)
		}
		seen[in.Name] = struct{}{}

		ty, err := typeExprToCtyType(ctx, in.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", in.Name, err)
		}

		param := &config.ParameterDefinition{
			Name:        in.Name,
			Type:        ty,
			Description: in.Description,
			Optional:    in.Optional,
			Output:      in.Output,
			Path:        isPathTypeExpr(in.Type),
		}

		if !isAbsent(in.Default) {
			val, diags := in.Default.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("parameter %q: invalid default: %w", in.Name, diags)
			}
			// A null default means "no default".
			if !val.IsNull() {
				converted, err := convert.Convert(val, ty)
				if err != nil {
					return nil, fmt.Errorf("parameter %q: default does not match type %s: %w", in.Name, ty.FriendlyName(), err)
				}
				param.Default = &converted
			}
		}
		if !isAbsent(in.Complete) {
			param.Complete = in.Complete
		}

		logger.Debug("Translated parameter.", "process", s.Name, "param", in.Name, "type", ty.FriendlyName())
		def.Parameters = append(def.Parameters, param)
	}
	return def, nil
}

// translatePipeline converts the HCL-specific pipeline schema into the agnostic model.
func (l *Loader) translatePipeline(s *pipelineBlock) *config.PipelineDefinition {
	def := &config.PipelineDefinition{
		Name:        s.Name,
		Description: s.Description,
	}
	for _, n := range s.Nodes {
		def.Nodes = append(def.Nodes, &config.NodeDefinition{Name: n.Name, Process: n.Process})
	}
	for _, e := range s.Exports {
		def.Exports = append(def.Exports, &config.ExportDefinition{Name: e.Name, To: e.To, Description: e.Description})
	}
	for _, lk := range s.Links {
		def.Links = append(def.Links, &config.LinkDefinition{From: lk.From, To: lk.To})
	}
	return def
}

// isAbsent reports whether an optional expression attribute was omitted.
// gohcl fills omitted hcl.Expression fields with a static null expression.
func isAbsent(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull() && val.Type() == cty.DynamicPseudoType
}
