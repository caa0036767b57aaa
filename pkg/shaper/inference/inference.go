package inference

import "context"

// Engine classifies text against a learned model.
// This interface allows swapping implementations (hierarchy ascent, exact
// lookup only, remote model, etc.)
type Engine interface {
	// Classify returns the predicted label. ok is false when the model does
	// not know; err is reserved for storage failures and corruption.
	Classify(ctx context.Context, text string) (label string, ok bool, err error)

	// Explain classifies text and returns every level visited.
	Explain(ctx context.Context, text string) (Trace, error)
}

// Why a classification ended.
const (
	ReasonMatch     = "match"     // strict majority at some level
	ReasonExhausted = "exhausted" // no Chars above the last level tried
	ReasonUnmapped  = "unmapped"  // an element has no Char at the next level
)

// Step represents one level visited during classification
type Step struct {
	Level    int            `json:"level"`
	Pattern  string         `json:"pattern"`
	Found    bool           `json:"found"`
	Total    int            `json:"total,omitempty"`
	Labels   map[string]int `json:"labels,omitempty"`
	Majority string         `json:"majority,omitempty"`
	Unmapped string         `json:"unmapped,omitempty"` // first element without a Char
}

// Trace is the full account of one classification
type Trace struct {
	Text   string `json:"text"`
	Label  string `json:"label,omitempty"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Steps  []Step `json:"steps"`
}
