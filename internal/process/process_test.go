package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/zclconf/go-cty/cty"
)

func thresholdDef() *config.ProcessDefinition {
	ten := cty.NumberIntVal(10)
	return &config.ProcessDefinition{
		Name:   "threshold",
		Runner: "OnRunPrint",
		Parameters: []*config.ParameterDefinition{
			{Name: "input", Type: cty.String},
			{Name: "output", Type: cty.String, Output: true},
			{Name: "threshold1", Type: cty.Number, Default: &ten},
			{Name: "labels", Type: cty.List(cty.String), Optional: true},
		},
	}
}

func TestInstance_SetConvertsToDeclaredType(t *testing.T) {
	inst := NewInstance(thresholdDef())

	require.NoError(t, inst.Set(parampath.Of("threshold1"), cty.StringVal("80")))
	require.NoError(t, inst.Set(parampath.Of("labels"), cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(2)})))

	v, err := inst.Get(parampath.Of("threshold1"))
	require.NoError(t, err)
	assert.True(t, cty.NumberIntVal(80).RawEquals(v))

	labels, err := inst.Get(parampath.Of("labels"))
	require.NoError(t, err)
	assert.True(t, cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("2")}).RawEquals(labels))
}

func TestInstance_SetErrors(t *testing.T) {
	inst := NewInstance(thresholdDef())

	err := inst.Set(parampath.Of("nope"), cty.StringVal("x"))
	require.ErrorIs(t, err, ErrUnknownParameter)
	var perr *ParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "nope", perr.Path)
	assert.Equal(t, "threshold", perr.Process)

	err = inst.Set(parampath.Of("threshold1"), cty.StringVal("eighty"))
	require.ErrorIs(t, err, ErrInvalidValue)

	err = inst.Set(parampath.Of("input", "deeper"), cty.StringVal("x"))
	require.ErrorIs(t, err, ErrUnknownParameter)
}

func TestInstance_NullUnsetsAndMissing(t *testing.T) {
	inst := NewInstance(thresholdDef())
	assert.Equal(t, []string{"input", "output"}, inst.Missing())

	require.NoError(t, inst.Set(parampath.Of("input"), cty.StringVal("/data/a.nii")))
	require.NoError(t, inst.Set(parampath.Of("output"), cty.StringVal("/data/b.nii")))
	assert.Empty(t, inst.Missing())

	require.NoError(t, inst.Set(parampath.Of("output"), cty.NullVal(cty.DynamicPseudoType)))
	assert.False(t, inst.IsSet("output"))
	assert.Equal(t, []string{"output"}, inst.Missing())

	v, err := inst.Get(parampath.Of("output"))
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Equal(t, cty.String, v.Type())
}

func TestInstance_CloneIsIndependent(t *testing.T) {
	inst := NewInstance(thresholdDef())
	require.NoError(t, inst.Set(parampath.Of("input"), cty.StringVal("a")))

	clone := inst.Clone().(*Instance)
	require.NoError(t, clone.Set(parampath.Of("input"), cty.StringVal("b")))

	assert.Equal(t, "a", inst.Values()["input"].AsString())
	assert.Equal(t, "b", clone.Values()["input"].AsString())
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	def := &config.PipelineDefinition{
		Name:    "two_steps",
		Exports: []*config.ExportDefinition{{Name: "image", To: "first.input", Description: "Input image."}},
		Links:   []*config.LinkDefinition{{From: "first.output", To: "second.input"}},
	}
	nodes := []*Node{
		{Name: "first", Process: NewInstance(thresholdDef())},
		{Name: "second", Process: NewInstance(thresholdDef())},
	}
	p, err := NewPipeline(def, nodes)
	require.NoError(t, err)
	return p
}

func TestPipeline_ExportsAndDottedPaths(t *testing.T) {
	p := newTestPipeline(t)

	params := p.Parameters()
	require.Len(t, params, 1)
	assert.Equal(t, "image", params[0].Name)
	assert.Equal(t, "Input image.", params[0].Description)
	assert.Equal(t, cty.String, params[0].Type)

	require.NoError(t, p.Set(parampath.Of("image"), cty.StringVal("/data/t1.nii")))
	require.NoError(t, p.Set(parampath.MustParse("second.threshold1"), cty.StringVal("42")))

	first, _ := p.Node("first")
	assert.Equal(t, "/data/t1.nii", first.Process.(*Instance).Values()["input"].AsString())

	v, err := p.Get(parampath.MustParse("second.threshold1"))
	require.NoError(t, err)
	assert.True(t, cty.NumberIntVal(42).RawEquals(v))

	require.Len(t, p.Links(), 1)
	assert.Equal(t, "first.output", p.Links()[0].From.String())
}

func TestPipeline_Errors(t *testing.T) {
	p := newTestPipeline(t)

	err := p.Set(parampath.Of("threshold1"), cty.StringVal("1"))
	require.ErrorIs(t, err, ErrUnknownParameter)

	err = p.Set(parampath.MustParse("third.input"), cty.StringVal("1"))
	require.ErrorIs(t, err, ErrUnknownParameter)

	err = p.Set(parampath.MustParse("first.threshold1"), cty.StringVal("x"))
	require.ErrorIs(t, err, ErrInvalidValue)
	var perr *ParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "first.threshold1", perr.Path)
	assert.Equal(t, "two_steps", perr.Process)
}

func TestPipeline_InvalidDefinition(t *testing.T) {
	nodes := []*Node{{Name: "first", Process: NewInstance(thresholdDef())}}

	_, err := NewPipeline(&config.PipelineDefinition{
		Name:    "bad",
		Exports: []*config.ExportDefinition{{Name: "x", To: "first.nope"}},
	}, nodes)
	require.ErrorIs(t, err, ErrInvalidPipeline)

	_, err = NewPipeline(&config.PipelineDefinition{
		Name:  "bad",
		Links: []*config.LinkDefinition{{From: "first.output", To: "ghost.input"}},
	}, nodes)
	require.ErrorIs(t, err, ErrInvalidPipeline)
}

func TestPipeline_CloneIsDeep(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.Set(parampath.Of("image"), cty.StringVal("a")))

	clone := p.Clone()
	require.NoError(t, clone.Set(parampath.Of("image"), cty.StringVal("b")))

	v, err := p.Get(parampath.Of("image"))
	require.NoError(t, err)
	assert.Equal(t, "a", v.AsString())
}
