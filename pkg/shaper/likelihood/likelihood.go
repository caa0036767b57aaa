// Package likelihood estimates how likely one pattern element is to follow
// another within the patterns of a single level.
//
//	P(b | a) = Σ w(p)·[a→b in p] / Σ w(p)·[a→· in p]
//
// where w(p) is the number of training samples that produced pattern p.
package likelihood

import "github.com/cognicore/shaper/pkg/shaper/shape"

// Table holds the transition likelihoods of one level.
type Table struct {
	probs    map[Pair]float64
	elements []shape.RunElement
}

// Table converts raw counts into likelihoods.
func (c *Counter) Table() *Table {
	t := &Table{
		probs:    make(map[Pair]float64, len(c.Nab)),
		elements: c.Elements(),
	}
	for pair, n := range c.Nab {
		total := c.Na[pair.A]
		if total == 0 {
			continue
		}
		t.probs[pair] = float64(n) / float64(total)
	}
	return t
}

// Likelihood returns P(b follows a), 0 when never observed.
func (t *Table) Likelihood(a, b shape.RunElement) float64 {
	return t.probs[Pair{A: a, B: b}]
}

// Elements returns the distinct elements of the level in canonical order.
func (t *Table) Elements() []shape.RunElement {
	out := make([]shape.RunElement, len(t.elements))
	copy(out, t.elements)
	return out
}

// Len returns the number of distinct elements.
func (t *Table) Len() int {
	return len(t.elements)
}
