// Package cache holds the level-keyed view of a persisted model that the
// classifier reads from. Levels are loaded from the store on first use and
// then served from memory until Clear.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// Reader is the read half of store.Store.
type Reader interface {
	LoadChars(ctx context.Context, level int) ([]shape.Char, error)
	LoadChar(ctx context.Context, id shape.CharID) (shape.Char, bool, error)
	LoadPatterns(ctx context.Context, level int) ([]store.PatternRecord, error)
	LoadBase(ctx context.Context) (int, bool, error)
}

// charLevel is the loaded state of the Chars of one level.
type charLevel struct {
	chars []shape.Char
	owner map[shape.RunElement]shape.CharID // element of level-1 -> Char of this level
}

// Cache is safe for concurrent use. Loaded levels are never modified; a
// level loaded twice by racing callers keeps the first copy.
type Cache struct {
	st Reader

	mu       sync.RWMutex
	chars    map[int]*charLevel
	patterns map[int]map[string]shape.SampleCount
	byID     map[shape.CharID]shape.Char
	base     *modelBase
}

// modelBase is the loaded run-length base; ok is false for an empty store.
type modelBase struct {
	base int
	ok   bool
}

// New returns an empty cache over st.
func New(st Reader) *Cache {
	c := &Cache{st: st}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.chars = make(map[int]*charLevel)
	c.patterns = make(map[int]map[string]shape.SampleCount)
	c.byID = make(map[shape.CharID]shape.Char)
	c.base = nil
}

// Clear drops every loaded level. Callers must Clear after the model in the
// store has been relearned.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Levels returns how many char and pattern levels are currently loaded.
func (c *Cache) Levels() (chars, patterns int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chars), len(c.patterns)
}

// Base returns the run-length base the stored model was learned with.
func (c *Cache) Base(ctx context.Context) (int, bool, error) {
	c.mu.RLock()
	mb := c.base
	c.mu.RUnlock()
	if mb != nil {
		return mb.base, mb.ok, nil
	}

	base, ok, err := c.st.LoadBase(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("load base: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base == nil {
		c.base = &modelBase{base: base, ok: ok}
	}
	return c.base.base, c.base.ok, nil
}

// Chars returns the Chars of a level. The slice must not be modified.
func (c *Cache) Chars(ctx context.Context, level int) ([]shape.Char, error) {
	cl, err := c.charLevel(ctx, level)
	if err != nil {
		return nil, err
	}
	return cl.chars, nil
}

// Owner returns the Char of the given level whose cluster contains e, an
// element of the level below.
func (c *Cache) Owner(ctx context.Context, level int, e shape.RunElement) (shape.Char, bool, error) {
	cl, err := c.charLevel(ctx, level)
	if err != nil {
		return shape.Char{}, false, err
	}
	id, ok := cl.owner[e]
	if !ok {
		return shape.Char{}, false, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.byID[id]
	return ch, ok, nil
}

// Lookup returns the label counts of p at p.Level.
func (c *Cache) Lookup(ctx context.Context, p shape.Pattern) (shape.SampleCount, bool, error) {
	patterns, err := c.patternLevel(ctx, p.Level)
	if err != nil {
		return shape.SampleCount{}, false, err
	}
	sc, ok := patterns[p.Key()]
	return sc, ok, nil
}

// Char resolves a Char by ID, loading it from the store when no loaded level
// holds it. A missing ID is internalerr.ErrCorrupt: the model references a
// Char the store does not have.
func (c *Cache) Char(ctx context.Context, id shape.CharID) (shape.Char, error) {
	c.mu.RLock()
	ch, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return ch, nil
	}

	ch, ok, err := c.st.LoadChar(ctx, id)
	if err != nil {
		return shape.Char{}, fmt.Errorf("load char %s: %w", id, err)
	}
	if !ok {
		return shape.Char{}, fmt.Errorf("unknown char %s: %w", id, internalerr.ErrCorrupt)
	}
	return ch, nil
}

func (c *Cache) charLevel(ctx context.Context, level int) (*charLevel, error) {
	c.mu.RLock()
	cl, ok := c.chars[level]
	c.mu.RUnlock()
	if ok {
		return cl, nil
	}

	chars, err := c.st.LoadChars(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("load chars level %d: %w", level, err)
	}

	if level > 1 && len(chars) > 0 {
		if _, err := c.charLevel(ctx, level-1); err != nil {
			return nil, err
		}
	}

	cl = &charLevel{
		chars: chars,
		owner: make(map[shape.RunElement]shape.CharID),
	}
	for _, ch := range chars {
		if ch.Level != level {
			return nil, fmt.Errorf("char %s stored at level %d, expected %d: %w", ch.ID, ch.Level, level, internalerr.ErrCorrupt)
		}
		if level > 1 {
			if err := c.validateRefs(ctx, ch.Cluster); err != nil {
				return nil, fmt.Errorf("char %s: %w", ch.ID, err)
			}
		}
		for _, e := range ch.Cluster {
			cl.owner[e] = ch.ID
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.chars[level]; ok {
		return existing, nil
	}
	c.chars[level] = cl
	for _, ch := range chars {
		c.byID[ch.ID] = ch
	}
	return cl, nil
}

func (c *Cache) patternLevel(ctx context.Context, level int) (map[string]shape.SampleCount, error) {
	c.mu.RLock()
	patterns, ok := c.patterns[level]
	c.mu.RUnlock()
	if ok {
		return patterns, nil
	}

	recs, err := c.st.LoadPatterns(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("load patterns level %d: %w", level, err)
	}
	if level > 0 && len(recs) > 0 {
		// Make the level's chars resolvable before validating references.
		if _, err := c.charLevel(ctx, level); err != nil {
			return nil, err
		}
	}

	patterns = make(map[string]shape.SampleCount, len(recs))
	for _, rec := range recs {
		if err := c.validateRefs(ctx, rec.Pattern.Elements); err != nil {
			return nil, fmt.Errorf("pattern %s: %w", rec.ID, err)
		}
		key := rec.Pattern.Key()
		if sc, dup := patterns[key]; dup {
			// Tolerate split records of one pattern.
			sc.Merge(rec.Count)
			patterns[key] = sc
			continue
		}
		patterns[key] = rec.Count.Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.patterns[level]; ok {
		return existing, nil
	}
	c.patterns[level] = patterns
	return patterns, nil
}

func (c *Cache) validateRefs(ctx context.Context, elements []shape.RunElement) error {
	for _, e := range elements {
		if e.Symbol.Kind != shape.KindChar {
			continue
		}
		if _, err := c.Char(ctx, e.Symbol.Char); err != nil {
			return err
		}
	}
	return nil
}
