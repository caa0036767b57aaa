// Package storetest holds the behaviour every store.Store implementation must
// share. Backends call RunContract from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// OpenFunc returns a fresh, empty store. The suite closes it.
type OpenFunc func(t *testing.T) store.Store

// RunContract runs the shared store suite against open.
func RunContract(t *testing.T, open OpenFunc) {
	t.Run("CharRoundTrip", func(t *testing.T) { testCharRoundTrip(t, open(t)) })
	t.Run("CharsByLevel", func(t *testing.T) { testCharsByLevel(t, open(t)) })
	t.Run("MissingChar", func(t *testing.T) { testMissingChar(t, open(t)) })
	t.Run("PatternRoundTrip", func(t *testing.T) { testPatternRoundTrip(t, open(t)) })
	t.Run("DuplicatePatternsKeepDistinctIDs", func(t *testing.T) { testDuplicatePatterns(t, open(t)) })
	t.Run("ClearAll", func(t *testing.T) { testClearAll(t, open(t)) })
	t.Run("LevelBounds", func(t *testing.T) { testLevelBounds(t, open(t)) })
	t.Run("Base", func(t *testing.T) { testBase(t, open(t)) })
}

func lit(r rune, n int) shape.RunElement {
	return shape.RunElement{Symbol: shape.Literal(r), Count: n}
}

func ref(id shape.CharID, n int) shape.RunElement {
	return shape.RunElement{Symbol: shape.Ref(id), Count: n}
}

func counts(labels ...string) shape.SampleCount {
	sc := shape.NewSampleCount()
	for _, l := range labels {
		sc.Add(l)
	}
	return sc
}

func testCharRoundTrip(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	c := shape.NewChar(1, []shape.RunElement{lit('a', 1), lit('é', 20), lit(',', 1)})
	id, err := s.SaveChar(ctx, c)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, ok, err := s.LoadChar(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 1, got.Level)
	assert.True(t, c.Equal(got))

	// Higher levels reference chars by ID.
	upper := shape.NewChar(2, []shape.RunElement{ref(id, 3), ref(id, 1)})
	upperID, err := s.SaveChar(ctx, upper)
	require.NoError(t, err)
	assert.NotEqual(t, id, upperID)

	got, ok, err = s.LoadChar(ctx, upperID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.ElementsMatch(t, upper.Cluster, got.Cluster)
}

func testCharsByLevel(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	var level1 []shape.CharID
	for _, r := range "abc" {
		id, err := s.SaveChar(ctx, shape.NewChar(1, []shape.RunElement{lit(r, 1)}))
		require.NoError(t, err)
		level1 = append(level1, id)
	}
	id2, err := s.SaveChar(ctx, shape.NewChar(2, []shape.RunElement{ref(level1[0], 1)}))
	require.NoError(t, err)

	chars, err := s.LoadChars(ctx, 1)
	require.NoError(t, err)
	require.Len(t, chars, 3)
	ids := make([]shape.CharID, len(chars))
	for i, c := range chars {
		ids[i] = c.ID
		assert.Equal(t, 1, c.Level)
	}
	assert.ElementsMatch(t, level1, ids)

	chars, err = s.LoadChars(ctx, 2)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, id2, chars[0].ID)

	chars, err = s.LoadChars(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, chars)
}

func testMissingChar(t *testing.T, s store.Store) {
	defer s.Close()

	_, ok, err := s.LoadChar(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testPatternRoundTrip(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	cid, err := s.SaveChar(ctx, shape.NewChar(1, []shape.RunElement{lit('a', 1)}))
	require.NoError(t, err)

	p := shape.Pattern{Level: 1, Elements: []shape.RunElement{ref(cid, 4), ref(cid, 1)}}
	pid, err := s.SavePattern(ctx, p, counts("poop", "loop", "loop"))
	require.NoError(t, err)
	require.NotEmpty(t, pid)

	q := shape.Pattern{Level: 2, Elements: []shape.RunElement{ref("x", 1)}}
	_, err = s.SavePattern(ctx, q, counts("loop"))
	require.NoError(t, err)

	recs, err := s.LoadPatterns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, pid, recs[0].ID)
	assert.True(t, p.Equal(recs[0].Pattern), "element order is significant")
	assert.Equal(t, 1, recs[0].Pattern.Level)
	assert.Equal(t, 3, recs[0].Count.Total)
	assert.Equal(t, map[string]int{"poop": 1, "loop": 2}, recs[0].Count.ByLabel)

	recs, err = s.LoadPatterns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, q.Equal(recs[0].Pattern))

	recs, err = s.LoadPatterns(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func testDuplicatePatterns(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	p := shape.Pattern{Level: 1, Elements: []shape.RunElement{ref("x", 1)}}
	a, err := s.SavePattern(ctx, p, counts("a"))
	require.NoError(t, err)
	b, err := s.SavePattern(ctx, p, counts("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	recs, err := s.LoadPatterns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func testClearAll(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	cid, err := s.SaveChar(ctx, shape.NewChar(1, []shape.RunElement{lit('a', 1)}))
	require.NoError(t, err)
	_, err = s.SavePattern(ctx, shape.Pattern{Level: 1, Elements: []shape.RunElement{ref(cid, 1)}}, counts("a"))
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	chars, err := s.LoadChars(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, chars)
	recs, err := s.LoadPatterns(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
	_, ok, err := s.LoadChar(ctx, cid)
	require.NoError(t, err)
	assert.False(t, ok)

	// The store stays usable after a clear.
	_, err = s.SaveChar(ctx, shape.NewChar(1, []shape.RunElement{lit('b', 1)}))
	require.NoError(t, err)
	chars, err = s.LoadChars(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, chars, 1)
}

func testLevelBounds(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	// Chars start at level 1, patterns at level 0.
	_, err := s.SaveChar(ctx, shape.NewChar(0, []shape.RunElement{lit('a', 1)}))
	assert.Error(t, err)
	_, err = s.SavePattern(ctx, shape.Pattern{Level: -1, Elements: []shape.RunElement{lit('a', 1)}}, counts("a"))
	assert.Error(t, err)

	p := shape.Pattern{Level: 0, Elements: []shape.RunElement{lit('a', 3), lit('b', 1)}}
	_, err = s.SavePattern(ctx, p, counts("a"))
	require.NoError(t, err)
	recs, err := s.LoadPatterns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, p.Equal(recs[0].Pattern))

	// The empty pattern is a valid level-0 pattern.
	_, err = s.SavePattern(ctx, shape.Pattern{Level: 0}, counts("blank"))
	require.NoError(t, err)
	recs, err = s.LoadPatterns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func testBase(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.LoadBase(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store has no base")

	require.NoError(t, s.SaveBase(ctx, 10))
	require.NoError(t, s.SaveBase(ctx, 4))
	base, ok, err := s.LoadBase(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, base, "last save wins")

	err = s.SaveBase(ctx, 1)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	require.NoError(t, s.ClearAll(ctx))
	_, ok, err = s.LoadBase(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "ClearAll drops the base")
}
