package snapshot

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/graphcommit/graph"
	"github.com/vk/graphcommit/internal/testutil"
	"github.com/vk/graphcommit/node"
)

type numberInput struct {
	node.InputBase
	min, max float64
}

func newNumberInput(name string) *numberInput {
	return &numberInput{InputBase: node.NewInputBase(name), min: math.Inf(-1), max: math.Inf(1)}
}

func newClampedInput(name string, min, max float64) *numberInput {
	return &numberInput{InputBase: node.NewInputBase(name), min: min, max: max}
}

func (n *numberInput) Validate(v any) (any, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, node.ErrInvalidInputValue
	}
	if f < n.min {
		f = n.min
	}
	if f > n.max {
		f = n.max
	}
	return f, nil
}

func newSum(name string, deps ...node.Node) *testutil.SumDerived {
	return testutil.NewSumDerived(name, deps...)
}

func newProduct(name string, deps ...node.Node) *testutil.ProductDerived {
	return testutil.NewProductDerived(name, deps...)
}

type lazySum struct {
	node.DerivedBase
}

func newLazySum(name string, deps ...node.Node) *lazySum {
	return &lazySum{DerivedBase: node.NewDerivedBase(name, deps...)}
}

func (l *lazySum) IsLazy() bool { return true }
func (l *lazySum) Calculate(inputs []any) (any, error) {
	total := 0.0
	for _, in := range inputs {
		total += in.(float64)
	}
	return total, nil
}

// buildSum wires val1(1), val2(2), r=sum(val1,val2) and returns a
// consistent, committed initial snapshot alongside the raw node handles.
func buildSum(t *testing.T) (*Snapshot, *numberInput, *numberInput, *testutil.SumDerived) {
	t.Helper()
	val1 := newNumberInput("val1")
	val2 := newNumberInput("val2")
	r := newSum("r", val1, val2)

	sorted, err := graph.Sort([]node.Node{val1, val2, r})
	require.NoError(t, err)
	meta, err := graph.Build(sorted)
	require.NoError(t, err)

	values := map[node.Node]any{val1: 1.0, val2: 2.0, r: nil}
	changes := map[node.Node]struct{}{val1: {}, val2: {}, r: {}}
	s := New(meta, values, changes)

	committed, _, err := s.Commit(context.Background(), true)
	require.NoError(t, err)
	require.True(t, committed.IsConsistent())
	return committed, val1, val2, r
}

func TestSum_TwoInputsCommitToTotal(t *testing.T) {
	state, val1, _, r := buildSum(t)

	v, err := state.GetValue(r)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	inconsistent, err := state.ChangeValue(val1, 2.0)
	require.NoError(t, err)
	assert.False(t, inconsistent.IsConsistent())

	reverted, err := inconsistent.ChangeValue(val1, 1.0)
	require.NoError(t, err)
	assert.True(t, reverted.IsConsistent(), "reverting to the baseline clears Changes")

	changed, err := state.ChangeValue(val1, 2.0)
	require.NoError(t, err)
	final, outputChanges, err := changed.Commit(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, final.IsConsistent())

	fv, err := final.GetValue(r)
	require.NoError(t, err)
	assert.Equal(t, 4.0, fv)
	assert.Contains(t, outputChanges, node.Node(val1))
	assert.Contains(t, outputChanges, node.Node(r))
}

func TestChangeValue_ClampsThroughValidate(t *testing.T) {
	x := newClampedInput("x", 1, 5)
	sorted, err := graph.Sort([]node.Node{x})
	require.NoError(t, err)
	meta, err := graph.Build(sorted)
	require.NoError(t, err)

	s := New(meta, map[node.Node]any{x: 2.0}, map[node.Node]struct{}{x: {}})
	committed, _, err := s.Commit(context.Background(), true)
	require.NoError(t, err)

	changed, err := committed.ChangeValue(x, 6.0)
	require.NoError(t, err)
	final, _, err := changed.Commit(context.Background(), true)
	require.NoError(t, err)

	v, err := final.GetValue(x)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestLazy_DirtyPropagationWithoutEagerRecompute(t *testing.T) {
	a := newNumberInput("a")
	b := newNumberInput("b")
	lazy := newLazySum("lazy_sum", a, b)
	product := newProduct("product", a, b)
	final := newSum("final", lazy, product)

	sorted, err := graph.Sort([]node.Node{a, b, lazy, product, final})
	require.NoError(t, err)
	meta, err := graph.Build(sorted)
	require.NoError(t, err)

	values := map[node.Node]any{a: 1.0, b: 2.0, lazy: nil, product: nil, final: nil}
	changes := map[node.Node]struct{}{a: {}, b: {}, lazy: {}, product: {}, final: {}}
	s := New(meta, values, changes)
	committed, _, err := s.Commit(context.Background(), true)
	require.NoError(t, err)
	require.True(t, committed.IsConsistent())

	changed, err := committed.ChangeValue(a, 100.0)
	require.NoError(t, err)
	next, outputChanges, err := changed.Commit(context.Background(), true)
	require.NoError(t, err)
	require.True(t, next.IsConsistent())

	assert.Contains(t, outputChanges, node.Node(a))
	assert.Contains(t, outputChanges, node.Node(lazy))
	assert.Contains(t, outputChanges, node.Node(product))
	assert.Contains(t, outputChanges, node.Node(final))

	v, err := next.GetValue(final)
	require.NoError(t, err)
	assert.Equal(t, 102.0+200.0, v)
}

func TestCommit_IdempotentOnConsistentSnapshot(t *testing.T) {
	state, _, _, _ := buildSum(t)
	again, changes, err := state.Commit(context.Background(), true)
	require.NoError(t, err)
	assert.Same(t, state, again)
	assert.Empty(t, changes)
}

func TestCommit_ParallelAndSequentialAgree(t *testing.T) {
	state, val1, _, r := buildSum(t)
	changed, err := state.ChangeValue(val1, 10.0)
	require.NoError(t, err)

	parallelResult, parallelChanges, err := changed.Commit(context.Background(), true)
	require.NoError(t, err)
	sequentialResult, sequentialChanges, err := changed.Commit(context.Background(), false)
	require.NoError(t, err)

	pv, _ := parallelResult.GetValue(r)
	sv, _ := sequentialResult.GetValue(r)
	assert.Equal(t, pv, sv)
	assert.Equal(t, len(parallelChanges), len(sequentialChanges))
}

func TestCommit_CancellationLeavesUnprocessed(t *testing.T) {
	val1 := newNumberInput("val1")
	val2 := newNumberInput("val2")
	r := newSum("r", val1, val2)
	extra := newSum("extra", r)

	sorted, err := graph.Sort([]node.Node{val1, val2, r, extra})
	require.NoError(t, err)
	meta, err := graph.Build(sorted)
	require.NoError(t, err)

	s := New(meta, map[node.Node]any{val1: 1.0, val2: 2.0, r: nil, extra: nil},
		map[node.Node]struct{}{val1: {}, val2: {}, r: {}, extra: {}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, _, err := s.Commit(ctx, true)
	require.NoError(t, err)
	assert.False(t, result.IsConsistent())
	assert.Contains(t, result.Changes(), node.Node(r))
	assert.Contains(t, result.Changes(), node.Node(extra))
}

func TestCommit_CalculationErrorLeavesSnapshotUntouched(t *testing.T) {
	val1 := newNumberInput("val1")
	boom := errors.New("boom")
	f := testutil.NewFailingDerived("f", boom, val1)

	sorted, err := graph.Sort([]node.Node{val1, f})
	require.NoError(t, err)
	meta, err := graph.Build(sorted)
	require.NoError(t, err)

	s := New(meta, map[node.Node]any{val1: 1.0, f: nil}, map[node.Node]struct{}{val1: {}, f: {}})
	_, _, err = s.Commit(context.Background(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, node.ErrCalculationError)
	assert.ErrorIs(t, err, boom)
}

func TestGetValue_UnknownNode(t *testing.T) {
	state, _, _, _ := buildSum(t)
	stray := newNumberInput("stray")
	_, err := state.GetValue(stray)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestChangeConfiguration_WithoutBuilderRegistered(t *testing.T) {
	state, _, _, _ := buildSum(t)
	_, err := state.ChangeConfiguration()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuilderNotRegistered)
}

func TestDump(t *testing.T) {
	state, _, _, r := buildSum(t)
	dump := state.Dump()
	assert.Equal(t, 3.0, dump[r.Name()])
}
