package likelihood

import (
	"sort"

	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// Pair is an ordered pair of run elements: B directly follows A.
type Pair struct {
	A, B shape.RunElement
}

// Counter maintains weighted transition counts between adjacent pattern
// elements of one level.
type Counter struct {
	Nab      map[Pair]int64             // weighted count of A immediately followed by B
	Na       map[shape.RunElement]int64 // weighted count of A followed by anything
	elements map[shape.RunElement]struct{}
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{
		Nab:      make(map[Pair]int64),
		Na:       make(map[shape.RunElement]int64),
		elements: make(map[shape.RunElement]struct{}),
	}
}

// Add records one pattern whose sample count is weight.
func (c *Counter) Add(elements []shape.RunElement, weight int64) {
	for i, b := range elements {
		c.elements[b] = struct{}{}
		if i == 0 {
			continue
		}
		a := elements[i-1]
		c.Nab[Pair{A: a, B: b}] += weight
		c.Na[a] += weight
	}
}

// UniquePairs returns the number of distinct transitions seen.
func (c *Counter) UniquePairs() int {
	return len(c.Nab)
}

// Elements returns every distinct element in canonical order.
func (c *Counter) Elements() []shape.RunElement {
	out := make([]shape.RunElement, 0, len(c.elements))
	for e := range c.elements {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return shape.Less(out[i], out[j]) })
	return out
}
