package memstore

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// Store is an in-memory implementation of store.Store for tests and
// throwaway classifiers.
type Store struct {
	mu       sync.RWMutex
	entropy  *ulid.MonotonicEntropy
	chars    map[shape.CharID]shape.Char
	byLevel  map[int][]shape.CharID
	patterns map[int][]store.PatternRecord
	base     int // 0 until SaveBase
	closed   bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entropy:  ulid.Monotonic(rand.Reader, 0),
		chars:    make(map[shape.CharID]shape.Char),
		byLevel:  make(map[int][]shape.CharID),
		patterns: make(map[int][]store.PatternRecord),
	}
}

// Close implements store.Store. Every later call fails with
// internalerr.ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("memstore closed: %w", internalerr.ErrStoreUnavailable)
	}
	return nil
}

// SaveChar stores c under a fresh ID.
func (s *Store) SaveChar(ctx context.Context, c shape.Char) (shape.CharID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if c.Level < 1 {
		return "", fmt.Errorf("char level %d: %w", c.Level, internalerr.ErrInvalidInput)
	}

	stored := copyChar(c)
	stored.ID = shape.CharID(s.newID())
	s.chars[stored.ID] = stored
	s.byLevel[stored.Level] = append(s.byLevel[stored.Level], stored.ID)
	return stored.ID, nil
}

// LoadChars returns every char of the given level in insertion order.
func (s *Store) LoadChars(ctx context.Context, level int) ([]shape.Char, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	ids := s.byLevel[level]
	out := make([]shape.Char, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyChar(s.chars[id]))
	}
	return out, nil
}

// LoadChar returns a char by ID.
func (s *Store) LoadChar(ctx context.Context, id shape.CharID) (shape.Char, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return shape.Char{}, false, err
	}

	c, ok := s.chars[id]
	if !ok {
		return shape.Char{}, false, nil
	}
	return copyChar(c), true, nil
}

// SavePattern stores a pattern and its label counts under a fresh ID.
func (s *Store) SavePattern(ctx context.Context, p shape.Pattern, sc shape.SampleCount) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if p.Level < 0 {
		return "", fmt.Errorf("pattern level %d: %w", p.Level, internalerr.ErrInvalidInput)
	}

	rec := store.PatternRecord{
		ID: s.newID(),
		Pattern: shape.Pattern{
			Level:    p.Level,
			Elements: append([]shape.RunElement(nil), p.Elements...),
		},
		Count: sc.Clone(),
	}
	s.patterns[p.Level] = append(s.patterns[p.Level], rec)
	return rec.ID, nil
}

// LoadPatterns returns every pattern of the given level in insertion order.
func (s *Store) LoadPatterns(ctx context.Context, level int) ([]store.PatternRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	recs := s.patterns[level]
	out := make([]store.PatternRecord, len(recs))
	for i, rec := range recs {
		out[i] = store.PatternRecord{
			ID: rec.ID,
			Pattern: shape.Pattern{
				Level:    rec.Pattern.Level,
				Elements: append([]shape.RunElement(nil), rec.Pattern.Elements...),
			},
			Count: rec.Count.Clone(),
		}
	}
	return out, nil
}

// SaveBase records the run-length base of the model.
func (s *Store) SaveBase(ctx context.Context, base int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if base < 2 {
		return fmt.Errorf("base %d: %w", base, internalerr.ErrInvalidInput)
	}
	s.base = base
	return nil
}

// LoadBase returns the saved base.
func (s *Store) LoadBase(ctx context.Context) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return 0, false, err
	}
	return s.base, s.base != 0, nil
}

// ClearAll removes every char and pattern and the saved base.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	s.chars = make(map[shape.CharID]shape.Char)
	s.byLevel = make(map[int][]shape.CharID)
	s.patterns = make(map[int][]store.PatternRecord)
	s.base = 0
	return nil
}

// Inject stores a char under a caller-chosen ID, replacing any char with the
// same ID. Tests use it to build damaged models.
func (s *Store) Inject(c shape.Char) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyChar(c)
	if _, exists := s.chars[stored.ID]; !exists {
		s.byLevel[stored.Level] = append(s.byLevel[stored.Level], stored.ID)
	}
	s.chars[stored.ID] = stored
}

func copyChar(c shape.Char) shape.Char {
	c.Cluster = append([]shape.RunElement(nil), c.Cluster...)
	return c
}

var _ store.Store = (*Store)(nil)
