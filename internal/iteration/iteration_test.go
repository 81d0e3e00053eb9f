package iteration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/vk/capsulrun/internal/process"
	"github.com/zclconf/go-cty/cty"
)

func pairDef() *config.ProcessDefinition {
	return &config.ProcessDefinition{
		Name:   "pair",
		Runner: "OnRunPrint",
		Parameters: []*config.ParameterDefinition{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
			{Name: "label", Type: cty.String, Optional: true},
		},
	}
}

func numbers(ns ...int64) cty.Value {
	vals := make([]cty.Value, len(ns))
	for i, n := range ns {
		vals[i] = cty.NumberIntVal(n)
	}
	return cty.TupleVal(vals)
}

func TestIteration_ExpandPairsElements(t *testing.T) {
	// --- Arrange ---
	it, err := New(process.NewInstance(pairDef()), []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, it.Set(parampath.Of("a"), numbers(1, 2, 3)))
	require.NoError(t, it.Set(parampath.Of("b"), numbers(4, 5, 6)))
	require.NoError(t, it.Set(parampath.Of("label"), cty.StringVal("shared")))

	// --- Act ---
	invocations, err := it.Expand()

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, invocations, 3)
	want := [][2]int64{{1, 4}, {2, 5}, {3, 6}}
	for i, inv := range invocations {
		a, err := inv.Get(parampath.Of("a"))
		require.NoError(t, err)
		b, err := inv.Get(parampath.Of("b"))
		require.NoError(t, err)
		label, err := inv.Get(parampath.Of("label"))
		require.NoError(t, err)
		assert.True(t, cty.NumberIntVal(want[i][0]).RawEquals(a), "invocation %d a", i)
		assert.True(t, cty.NumberIntVal(want[i][1]).RawEquals(b), "invocation %d b", i)
		assert.Equal(t, "shared", label.AsString())
	}
}

func TestIteration_LengthMismatch(t *testing.T) {
	it, err := New(process.NewInstance(pairDef()), []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, it.Set(parampath.Of("a"), numbers(1, 2)))
	require.NoError(t, it.Set(parampath.Of("b"), numbers(1, 2, 3)))

	_, err = it.Expand()

	var mismatch *LengthMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"a", "b"}, mismatch.Names)
	assert.Equal(t, []int{2, 3}, mismatch.Lengths)
	assert.Contains(t, err.Error(), "IterationLengthMismatch")
}

func TestIteration_UnsetIteratedParametersStayUnset(t *testing.T) {
	it, err := New(process.NewInstance(pairDef()), []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, it.Set(parampath.Of("a"), numbers(7, 8)))

	invocations, err := it.Expand()
	require.NoError(t, err)
	require.Len(t, invocations, 2)
	for _, inv := range invocations {
		assert.False(t, inv.(*process.Instance).IsSet("b"))
	}
}

func TestIteration_NothingAssignedYieldsNoInvocations(t *testing.T) {
	it, err := New(process.NewInstance(pairDef()), []string{"a"})
	require.NoError(t, err)

	invocations, err := it.Expand()
	require.NoError(t, err)
	assert.Empty(t, invocations)
}

func TestIteration_RejectsBadInput(t *testing.T) {
	_, err := New(process.NewInstance(pairDef()), []string{"missing"})
	require.ErrorIs(t, err, process.ErrUnknownParameter)

	it, err := New(process.NewInstance(pairDef()), []string{"a"})
	require.NoError(t, err)
	err = it.Set(parampath.Of("a"), cty.StringVal("not a list"))
	require.ErrorIs(t, err, process.ErrInvalidValue)

	err = it.Set(parampath.Of("a"), cty.TupleVal([]cty.Value{cty.StringVal("x")}))
	require.ErrorIs(t, err, process.ErrInvalidValue)
}

func TestIteration_ParametersWrapIteratedTypes(t *testing.T) {
	it, err := New(process.NewInstance(pairDef()), []string{"b"})
	require.NoError(t, err)

	params := it.Parameters()
	require.Len(t, params, 3)
	assert.Equal(t, cty.Number, params[0].Type)
	assert.Equal(t, cty.List(cty.Number), params[1].Type)
	assert.False(t, params[1].Required())
	assert.Equal(t, []string{"b"}, it.Iterated())
}
