package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/graphcommit/internal/testutil"
	"github.com/vk/graphcommit/node"
)

func newSum(name string, deps ...node.Node) *testutil.SumDerived {
	return testutil.NewSumDerived(name, deps...)
}

func TestSort_ValidDAG(t *testing.T) {
	a := node.NewInputBase("a")
	b := node.NewInputBase("b")
	c := newSum("c", &a, &b)
	d := newSum("d", c)

	sorted, err := Sort([]node.Node{d, c, &b, &a})
	require.NoError(t, err)

	index := make(map[string]int, len(sorted))
	for i, n := range sorted {
		index[n.Name()] = i
	}
	assert.Less(t, index["a"], index["c"])
	assert.Less(t, index["b"], index["c"])
	assert.Less(t, index["c"], index["d"])
}

func TestSort_SimpleCycle(t *testing.T) {
	phA := node.NewPlaceholder("ph_a")
	phB := node.NewPlaceholder("ph_b")
	a := newSum("a", phB)
	b := newSum("b", phA)
	require.NoError(t, phA.Bind(a))
	require.NoError(t, phB.Bind(b))

	_, err := Sort([]node.Node{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestSort_DisjointComponents(t *testing.T) {
	a := node.NewInputBase("a")
	b := newSum("b", &a)

	x := node.NewInputBase("x")
	y := node.NewInputBase("y")
	z := newSum("z", &x, &y)

	sorted, err := Sort([]node.Node{b, &a, z, &x, &y})
	require.NoError(t, err)
	assert.Len(t, sorted, 5)
}

func TestBuild_Levels(t *testing.T) {
	a := node.NewInputBase("a")
	b := node.NewInputBase("b")
	c := newSum("c", &a, &b) // level 0
	d := newSum("d", c, &a)  // level 1
	e := newSum("e", &a)     // level 0, diamond sibling

	sorted, err := Sort([]node.Node{&a, &b, c, d, e})
	require.NoError(t, err)

	meta, err := Build(sorted)
	require.NoError(t, err)

	lvlA, ok := meta.LevelOf(&a)
	require.True(t, ok)
	assert.Equal(t, -1, lvlA)

	lvlC, ok := meta.LevelOf(c)
	require.True(t, ok)
	assert.Equal(t, 0, lvlC)

	lvlE, ok := meta.LevelOf(e)
	require.True(t, ok)
	assert.Equal(t, 0, lvlE)

	lvlD, ok := meta.LevelOf(d)
	require.True(t, ok)
	assert.Equal(t, 1, lvlD)

	require.Len(t, meta.Levels, 2)
	assert.ElementsMatch(t, []node.Derived{c, e}, meta.Levels[0])
	assert.ElementsMatch(t, []node.Derived{d}, meta.Levels[1])
}

func TestBuild_MissingDependency(t *testing.T) {
	a := node.NewInputBase("a")
	c := newSum("c", &a)

	_, err := Build([]node.Node{c})
	require.Error(t, err)
	assert.ErrorIs(t, err, node.ErrMissingDependency)
}

func TestMeta_ByNameAndContains(t *testing.T) {
	a := node.NewInputBase("a")
	sorted, err := Sort([]node.Node{&a})
	require.NoError(t, err)
	meta, err := Build(sorted)
	require.NoError(t, err)

	found, ok := meta.ByName("a")
	require.True(t, ok)
	assert.Equal(t, &a, found)
	assert.True(t, meta.Contains(&a))

	_, ok = meta.ByName("missing")
	assert.False(t, ok)
}
