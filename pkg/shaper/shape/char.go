package shape

import (
	"sort"
	"strconv"
	"strings"
)

// Char is a character of level >= 1: a cluster of previous-level run
// elements that tend to follow one another.
type Char struct {
	ID      CharID
	Level   int
	Cluster []RunElement
}

// NewChar builds a Char with its cluster copied and sorted canonically.
// Duplicate elements are dropped.
func NewChar(level int, cluster []RunElement) Char {
	sorted := make([]RunElement, 0, len(cluster))
	seen := make(map[RunElement]struct{}, len(cluster))
	for _, e := range cluster {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })
	return Char{Level: level, Cluster: sorted}
}

// Key returns the canonical identity of the cluster. ID and level are not
// part of it.
func (c Char) Key() string {
	if sort.SliceIsSorted(c.Cluster, func(i, j int) bool { return Less(c.Cluster[i], c.Cluster[j]) }) {
		return keyOf(c.Cluster)
	}
	return keyOf(NewChar(c.Level, c.Cluster).Cluster)
}

// Equal compares clusters as unordered sets.
func (c Char) Equal(o Char) bool {
	return c.Key() == o.Key()
}

// String renders the char as #id@level[elements].
func (c Char) String() string {
	parts := make([]string, len(c.Cluster))
	for i, e := range c.Cluster {
		parts[i] = e.String()
	}
	return "#" + string(c.ID) + "@" + strconv.Itoa(c.Level) + "[" + strings.Join(parts, " ") + "]"
}
