package store

import (
	"context"

	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// Store is the persistence contract of the shape model. Implementations own
// record identity: SaveChar and SavePattern assign IDs the core treats as
// opaque.
type Store interface {
	Close() error

	// Chars
	SaveChar(ctx context.Context, c shape.Char) (shape.CharID, error)
	LoadChars(ctx context.Context, level int) ([]shape.Char, error)
	LoadChar(ctx context.Context, id shape.CharID) (shape.Char, bool, error)

	// Patterns
	SavePattern(ctx context.Context, p shape.Pattern, sc shape.SampleCount) (string, error)
	LoadPatterns(ctx context.Context, level int) ([]PatternRecord, error)

	// Model settings. LoadBase reports ok=false when no model was saved.
	SaveBase(ctx context.Context, base int) error
	LoadBase(ctx context.Context) (int, bool, error)

	// ClearAll removes every Char and Pattern and the saved base. It must
	// complete before any save of the next learning run.
	ClearAll(ctx context.Context) error
}

// PatternRecord is a stored pattern with its label statistics.
type PatternRecord struct {
	ID      string
	Pattern shape.Pattern
	Count   shape.SampleCount
}
