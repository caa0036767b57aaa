package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Verdict is a memoized classification result.
type Verdict struct {
	Label string
	OK    bool
}

// Memo is a bounded LRU of verdicts keyed by input text. Spreadsheet columns
// repeat values, so bulk runs hit it often. A nil *Memo is a valid, always
// empty memo.
type Memo struct {
	lru *lru.Cache[string, Verdict]
}

// NewMemo returns a memo holding up to size entries, or nil when size <= 0.
func NewMemo(size int) (*Memo, error) {
	if size <= 0 {
		return nil, nil
	}
	l, err := lru.New[string, Verdict](size)
	if err != nil {
		return nil, fmt.Errorf("memo: %w", err)
	}
	return &Memo{lru: l}, nil
}

// Get returns the memoized verdict for text.
func (m *Memo) Get(text string) (Verdict, bool) {
	if m == nil {
		return Verdict{}, false
	}
	return m.lru.Get(text)
}

// Add records a verdict.
func (m *Memo) Add(text string, v Verdict) {
	if m == nil {
		return
	}
	m.lru.Add(text, v)
}

// Purge drops every verdict.
func (m *Memo) Purge() {
	if m == nil {
		return
	}
	m.lru.Purge()
}

// Len returns the number of memoized verdicts.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return m.lru.Len()
}
