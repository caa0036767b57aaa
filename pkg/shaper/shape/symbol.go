// Package shape holds the value types shared by the learner, the classifier
// and the stores: symbols, run elements, patterns, characters and label
// counts. Every type here is a plain value; identity is defined by canonical
// keys so that patterns and characters can live in Go maps.
package shape

import (
	"strconv"
	"strings"
)

// CharID is the persisted identity of a Char. Stores assign it and the core
// treats it as opaque.
type CharID string

// SymbolKind distinguishes literal code points from character references.
type SymbolKind uint8

const (
	// KindLiteral is a raw code point, used at level 0.
	KindLiteral SymbolKind = iota + 1
	// KindChar references a Char of the previous level by ID.
	KindChar
)

// String returns the kind name.
func (k SymbolKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindChar:
		return "char"
	default:
		return "unknown"
	}
}

// Symbol is one atomic input to the run-length encoder. It is comparable and
// usable as a map key. The zero Symbol is reserved for the encoder's
// terminator and never equals a real symbol.
type Symbol struct {
	Kind SymbolKind
	Rune rune
	Char CharID
}

// Literal returns the level-0 symbol for r.
func Literal(r rune) Symbol {
	return Symbol{Kind: KindLiteral, Rune: r}
}

// Ref returns a symbol that references the Char with the given ID.
func Ref(id CharID) Symbol {
	return Symbol{Kind: KindChar, Char: id}
}

// IsZero reports whether s is the reserved zero symbol.
func (s Symbol) IsZero() bool {
	return s.Kind == 0
}

// String renders the symbol for humans: a quoted rune or #id.
func (s Symbol) String() string {
	switch s.Kind {
	case KindLiteral:
		return strconv.QuoteRune(s.Rune)
	case KindChar:
		return "#" + string(s.Char)
	default:
		return "<term>"
	}
}

// RunElement is a symbol together with its bucketed run length.
type RunElement struct {
	Symbol Symbol
	Count  int
}

// String renders the element as symbol{count}.
func (e RunElement) String() string {
	return e.Symbol.String() + "{" + strconv.Itoa(e.Count) + "}"
}

// appendKey writes the canonical encoding of e to b.
// Literals encode as L<codepoint>x<count>, refs as C<len>:<id>x<count>; the
// length prefix keeps arbitrary IDs unambiguous.
func (e RunElement) appendKey(b *strings.Builder) {
	switch e.Symbol.Kind {
	case KindLiteral:
		b.WriteByte('L')
		b.WriteString(strconv.FormatInt(int64(e.Symbol.Rune), 10))
	case KindChar:
		b.WriteByte('C')
		b.WriteString(strconv.Itoa(len(e.Symbol.Char)))
		b.WriteByte(':')
		b.WriteString(string(e.Symbol.Char))
	default:
		b.WriteByte('T')
	}
	b.WriteByte('x')
	b.WriteString(strconv.Itoa(e.Count))
}

// Key returns the canonical string form of e.
func (e RunElement) Key() string {
	var b strings.Builder
	e.appendKey(&b)
	return b.String()
}

// Less orders run elements canonically: by kind, then rune or char ID, then
// count. Every tie-break in the learner uses this order, which makes learning
// deterministic for a fixed training set.
func Less(a, b RunElement) bool {
	if a.Symbol.Kind != b.Symbol.Kind {
		return a.Symbol.Kind < b.Symbol.Kind
	}
	if a.Symbol.Rune != b.Symbol.Rune {
		return a.Symbol.Rune < b.Symbol.Rune
	}
	if a.Symbol.Char != b.Symbol.Char {
		return a.Symbol.Char < b.Symbol.Char
	}
	return a.Count < b.Count
}

// keyOf joins element keys with a separator.
func keyOf(elements []RunElement) string {
	var b strings.Builder
	for i, e := range elements {
		if i > 0 {
			b.WriteByte(',')
		}
		e.appendKey(&b)
	}
	return b.String()
}
