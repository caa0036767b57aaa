package cluster

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/shaper/pkg/shaper/likelihood"
	"github.com/cognicore/shaper/pkg/shaper/shape"
)

type table map[[2]shape.RunElement]float64

func (t table) Likelihood(a, b shape.RunElement) float64 {
	return t[[2]shape.RunElement{a, b}]
}

type weighted struct {
	Elements []shape.RunElement
	Weight   int64
}

func estimate(patterns []weighted) *likelihood.Table {
	c := likelihood.NewCounter()
	for _, p := range patterns {
		c.Add(p.Elements, p.Weight)
	}
	return c.Table()
}

func el(r rune, n int) shape.RunElement {
	return shape.RunElement{Symbol: shape.Literal(r), Count: n}
}

func TestCouplingFormula(t *testing.T) {
	a, b := el('a', 1), el('b', 1)
	l := table{
		{a, b}: 1,
		{b, a}: 0.5,
		{a, a}: 0.25,
	}
	assert.Equal(t, 0.0, Coupling(l, nil))
	assert.Equal(t, 0.25, Coupling(l, []shape.RunElement{a}))
	assert.InDelta(t, (1+0.5+0.25)/2, Coupling(l, []shape.RunElement{a, b}), 1e-12)
	assert.InDelta(t, Coupling(l, []shape.RunElement{b, a}), Coupling(l, []shape.RunElement{a, b}), 1e-12)
}

func TestPartitionEmpty(t *testing.T) {
	assert.Nil(t, Partition(table{}, nil))
}

func TestPartitionNoLikelihoodsYieldsOneCluster(t *testing.T) {
	// Every candidate keeps coupling at 0 and ties favour growth.
	elems := []shape.RunElement{el('a', 1), el('b', 1), el('c', 1)}
	got := Partition(table{}, elems)
	require.Len(t, got, 1)
	assert.Equal(t, elems, got[0].Elements)
	assert.Equal(t, 0.0, got[0].Coupling)
}

func TestPartitionSplitsWeaklyCoupledGroups(t *testing.T) {
	a, b, x, y := el('a', 1), el('b', 1), el('x', 1), el('y', 1)
	l := table{
		{a, a}: 0.5, {a, b}: 0.5,
		{b, a}: 0.5, {b, b}: 0.5,
		{x, y}: 1,
		{y, x}: 1,
	}
	got := Partition(l, []shape.RunElement{a, b, x, y})
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []shape.RunElement{a, b}, got[0].Elements)
	assert.ElementsMatch(t, []shape.RunElement{x, y}, got[1].Elements)
	assert.InDelta(t, 1.0, got[0].Coupling, 1e-12)
	assert.InDelta(t, 1.0, got[1].Coupling, 1e-12)
}

func TestPartitionSingletonCluster(t *testing.T) {
	a, b, z := el('a', 1), el('b', 1), el('z', 1)
	l := table{
		{a, b}: 1, {b, a}: 1,
		{z, z}: 0.1,
	}
	// z wins the empty-cluster round on its self loop, then nothing can join
	// it without lowering the coupling.
	got := Partition(l, []shape.RunElement{a, b, z})
	require.Len(t, got, 2)
	assert.Equal(t, []shape.RunElement{z}, got[0].Elements)
	assert.InDelta(t, 0.1, got[0].Coupling, 1e-12)
	assert.Equal(t, []shape.RunElement{a, b}, got[1].Elements)
	assert.InDelta(t, 1.0, got[1].Coupling, 1e-12)
}

func TestPartitionCoversEveryElementOnce(t *testing.T) {
	tbl := estimate([]weighted{
		{Elements: []shape.RunElement{el('1', 3), el(',', 1), el('1', 3)}, Weight: 5},
		{Elements: []shape.RunElement{el('a', 9), el(' ', 1), el('a', 2)}, Weight: 2},
		{Elements: []shape.RunElement{el('a', 3), el(',', 1), el(' ', 1), el('a', 2)}, Weight: 1},
		{Elements: []shape.RunElement{el('1', 2), el('.', 1), el('1', 2), el('.', 1), el('1', 4)}, Weight: 7},
	})
	elems := tbl.Elements()
	clusters := Partition(tbl, elems)

	var flat []shape.RunElement
	for _, c := range clusters {
		require.NotEmpty(t, c.Elements)
		flat = append(flat, c.Elements...)
	}
	sort.Slice(flat, func(i, j int) bool { return shape.Less(flat[i], flat[j]) })
	assert.Equal(t, elems, flat)
}

func TestPartitionCouplingNeverDecreases(t *testing.T) {
	tbl := estimate([]weighted{
		{Elements: []shape.RunElement{el('p', 1), el('o', 2), el('p', 1), el('a', 1)}, Weight: 1},
		{Elements: []shape.RunElement{el('l', 1), el('o', 2), el('p', 1), el('a', 1)}, Weight: 1},
		{Elements: []shape.RunElement{el('l', 1), el('o', 2), el('p', 1), el('a', 1), el(' ', 1), el('d', 1), el('o', 2), el('p', 1), el('a', 1)}, Weight: 1},
		{Elements: []shape.RunElement{el('1', 3), el(',', 1), el('0', 3)}, Weight: 4},
	})
	for _, c := range Partition(tbl, tbl.Elements()) {
		prev := 0.0
		for i := 1; i <= len(c.Elements); i++ {
			cur := Coupling(tbl, c.Elements[:i])
			assert.GreaterOrEqual(t, cur+1e-9, prev, "prefix %d of %v", i, c.Elements)
			prev = cur
		}
		assert.InDelta(t, Coupling(tbl, c.Elements), c.Coupling, 1e-9)
	}
}

func TestPartitionTieFavoursInputOrder(t *testing.T) {
	a, b := el('a', 1), el('b', 1)
	got := Partition(table{}, []shape.RunElement{b, a})
	require.Len(t, got, 1)
	assert.Equal(t, []shape.RunElement{b, a}, got[0].Elements)
}

func TestPartitionScenarioMergesIntoSingleChar(t *testing.T) {
	tbl := estimate([]weighted{
		{Elements: []shape.RunElement{el('p', 1), el('o', 2), el('p', 1), el('a', 1)}, Weight: 1},
		{Elements: []shape.RunElement{el('l', 1), el('o', 2), el('p', 1), el('a', 1)}, Weight: 1},
		{Elements: []shape.RunElement{el('l', 1), el('o', 2), el('p', 1), el('a', 1), el(' ', 1), el('d', 1), el('o', 2), el('p', 1), el('a', 1)}, Weight: 1},
	})
	got := Partition(tbl, tbl.Elements())
	require.Len(t, got, 1)
	assert.Len(t, got[0].Elements, 6)
}
