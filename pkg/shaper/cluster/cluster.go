// Package cluster groups the distinct elements of one level into clusters
// that maximise their average pairwise transition likelihood ("coupling").
// Each cluster becomes a Char of the next level.
package cluster

import "github.com/cognicore/shaper/pkg/shaper/shape"

// Likelihood reports how likely b is to follow a.
type Likelihood interface {
	Likelihood(a, b shape.RunElement) float64
}

// Cluster is one group of elements in the order they were accepted, with the
// coupling recorded when the last element joined.
type Cluster struct {
	Elements []shape.RunElement
	Coupling float64
}

// Coupling returns Σ L(a,b) over all ordered pairs of the cluster (self pairs
// included) divided by the cluster size. An empty cluster has coupling 0.
func Coupling(l Likelihood, elements []shape.RunElement) float64 {
	if len(elements) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range elements {
		for _, b := range elements {
			sum += l.Likelihood(a, b)
		}
	}
	return sum / float64(len(elements))
}

// Partition greedily splits elements into clusters.
//
// Starting from an empty cluster with coupling 0, the element that maximises
// the coupling of cluster ∪ {e} is picked; it joins when that coupling is at
// least the current one. Otherwise the cluster is closed and selection
// restarts from an empty cluster over everything still unclustered. Ties go
// to the element that comes first in the input order, so callers pass
// elements in canonical order for deterministic results.
func Partition(l Likelihood, elements []shape.RunElement) []Cluster {
	n := len(elements)
	if n == 0 {
		return nil
	}

	alive := make([]bool, n)
	self := make([]float64, n)
	gain := make([]float64, n) // Σ over cluster members c of L(c,e)+L(e,c)
	for i, e := range elements {
		alive[i] = true
		self[i] = l.Likelihood(e, e)
	}

	var (
		out     []Cluster
		current Cluster
		sum     float64
		left    = n
	)

	closeCluster := func() {
		out = append(out, current)
		current = Cluster{}
		sum = 0
		for i := range gain {
			gain[i] = 0
		}
	}

	for left > 0 {
		best := -1
		bestVal := 0.0
		size := float64(len(current.Elements) + 1)
		for i := range elements {
			if !alive[i] {
				continue
			}
			v := (sum + (gain[i] + self[i])) / size
			if best < 0 || v > bestVal {
				best, bestVal = i, v
			}
		}

		if bestVal < current.Coupling {
			closeCluster()
			continue
		}

		x := elements[best]
		alive[best] = false
		left--
		sum += gain[best] + self[best]
		current.Elements = append(current.Elements, x)
		current.Coupling = bestVal

		for j, e := range elements {
			if alive[j] {
				gain[j] += l.Likelihood(x, e) + l.Likelihood(e, x)
			}
		}
	}

	if len(current.Elements) > 0 {
		out = append(out, current)
	}
	return out
}
