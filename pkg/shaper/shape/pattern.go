package shape

import "strings"

// Pattern is the run-length encoded shape of a sequence at one level.
// Two patterns are the same pattern when their element lists are equal; the
// level is metadata.
type Pattern struct {
	Level    int
	Elements []RunElement
}

// Key returns the canonical identity of the pattern.
func (p Pattern) Key() string {
	return keyOf(p.Elements)
}

// Equal reports whether p and o have identical element lists.
func (p Pattern) Equal(o Pattern) bool {
	if len(p.Elements) != len(o.Elements) {
		return false
	}
	for i := range p.Elements {
		if p.Elements[i] != o.Elements[i] {
			return false
		}
	}
	return true
}

// String renders the pattern as a space separated element list.
func (p Pattern) String() string {
	parts := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
