// Package rle turns symbol sequences into canonical run-length patterns.
//
// A run of n equal symbols becomes (symbol, Factorize(n)). Factorize keeps
// counts up to the base exact and collapses larger counts to their leading
// digit times a power of the base, so runs of 23 and 27 share a bucket while
// runs of 3 and 7 do not.
package rle

import "github.com/cognicore/shaper/pkg/shaper/shape"

// DefaultBase is the bucketing base used when none is configured.
const DefaultBase = 10

// Encoder run-length encodes symbol sequences with a fixed bucketing base.
type Encoder struct {
	base int
}

// New returns an Encoder. A base below 2 falls back to DefaultBase.
func New(base int) Encoder {
	if base < 2 {
		base = DefaultBase
	}
	return Encoder{base: base}
}

// Base returns the bucketing base.
func (e Encoder) Base() int {
	if e.base < 2 {
		return DefaultBase
	}
	return e.base
}

// Factorize buckets a run length.
//
//	n <= base  -> n
//	n >  base  -> leading digit of n (in the base) * base^k
func (e Encoder) Factorize(n int) int {
	base := e.Base()
	result := 1
	for n > base {
		n /= base
		result *= base
	}
	return result * n
}

// Encode collapses consecutive equal symbols into run elements. A terminator
// is appended to the walk so the final run is flushed; it never appears in
// the output. Zero symbols in the input are treated like any other symbol.
func (e Encoder) Encode(seq []shape.Symbol) []shape.RunElement {
	if len(seq) == 0 {
		return nil
	}

	out := make([]shape.RunElement, 0, len(seq))
	prev := seq[0]
	run := 0
	for i := 0; i <= len(seq); i++ {
		if i == len(seq) {
			// terminator
			out = append(out, shape.RunElement{Symbol: prev, Count: e.Factorize(run)})
			break
		}
		if seq[i] != prev {
			out = append(out, shape.RunElement{Symbol: prev, Count: e.Factorize(run)})
			prev = seq[i]
			run = 0
		}
		run++
	}
	return out
}

// Literals converts text into level-0 symbols, one per code point.
func Literals(text string) []shape.Symbol {
	out := make([]shape.Symbol, 0, len(text))
	for _, r := range text {
		out = append(out, shape.Literal(r))
	}
	return out
}

// EncodeText returns the level-0 pattern of text.
func (e Encoder) EncodeText(text string) shape.Pattern {
	return shape.Pattern{Level: 0, Elements: e.Encode(Literals(text))}
}
