package pyramid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
	"github.com/cognicore/shaper/pkg/shaper/store/memstore"
)

func scenario() []shape.Sample {
	return []shape.Sample{
		{Text: "poopa", Label: "poop"},
		{Text: "loopa", Label: "loop"},
		{Text: "loopa doopa", Label: "loop"},
	}
}

func TestBuildScenario(t *testing.T) {
	h, err := New(Options{}).Build(scenario())
	require.NoError(t, err)

	require.Len(t, h.Levels, 3)
	assert.Equal(t, StopConverged, h.Stop)
	assert.Equal(t, 3, h.Samples)
	assert.Equal(t, 10, h.Base)

	l0 := h.Levels[0]
	assert.Empty(t, l0.Chars)
	assert.Len(t, l0.Patterns, 3)
	assert.Equal(t, 6, l0.Elements)
	// p→oo oo→p p→a l→oo a→' ' ' '→d d→oo
	assert.Equal(t, 7, l0.Pairs)

	// All six letter runs fold into one char.
	l1 := h.Levels[1]
	require.Len(t, l1.Chars, 1)
	c := l1.Chars[0].ID
	require.Len(t, l1.Patterns, 2)
	assert.Equal(t, 2, l1.Elements)
	byKey := map[string]shape.SampleCount{}
	for _, pc := range l1.Patterns {
		assert.Equal(t, 1, pc.Pattern.Level)
		byKey[pc.Pattern.Key()] = pc.Count
	}
	four := shape.Pattern{Elements: []shape.RunElement{{Symbol: shape.Ref(c), Count: 4}}}
	nine := shape.Pattern{Elements: []shape.RunElement{{Symbol: shape.Ref(c), Count: 9}}}
	assert.Equal(t, map[string]int{"poop": 1, "loop": 1}, byKey[four.Key()].ByLabel)
	assert.Equal(t, map[string]int{"loop": 1}, byKey[nine.Key()].ByLabel)

	l2 := h.Levels[2]
	require.Len(t, l2.Chars, 1)
	require.Len(t, l2.Patterns, 1)
	assert.Equal(t, 1, l2.Elements)
}

func TestMergeSumsLabelCounts(t *testing.T) {
	h, err := New(Options{}).Build(scenario())
	require.NoError(t, err)

	// (C,4) and (C,9) coincide one level up.
	top := h.Levels[2].Patterns[0]
	assert.Equal(t, 3, top.Count.Total)
	assert.Equal(t, map[string]int{"poop": 1, "loop": 2}, top.Count.ByLabel)
}

func TestBuildIsDeterministic(t *testing.T) {
	samples := []shape.Sample{
		{Text: "123,456", Label: "number"},
		{Text: "9,999", Label: "number"},
		{Text: "Paris FR", Label: "city"},
		{Text: "Lyon FR", Label: "city"},
		{Text: "2024-01-02", Label: "date"},
		{Text: "1999-12-31", Label: "date"},
	}
	a, err := New(Options{}).Build(samples)
	require.NoError(t, err)
	b, err := New(Options{}).Build(samples)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEveryLevelCompresses(t *testing.T) {
	samples := []shape.Sample{
		{Text: "123,456", Label: "number"},
		{Text: "12,000,000", Label: "number"},
		{Text: "Paris FR", Label: "city"},
		{Text: "New York US", Label: "city"},
		{Text: "2024-01-02", Label: "date"},
		{Text: "12:30:00", Label: "time"},
		{Text: "aaaaaaaaaaaaaaaaaaaaaaa", Label: "filler"},
	}
	h, err := New(Options{}).Build(samples)
	require.NoError(t, err)

	for i := 1; i < len(h.Levels); i++ {
		assert.Less(t, len(h.Levels[i].Chars), h.Levels[i-1].Elements, "level %d", i)
		total := 0
		for _, pc := range h.Levels[i].Patterns {
			total += pc.Count.Total
		}
		assert.Equal(t, len(samples), total, "every sample is counted once per level")
	}
}

func TestBuildInputErrors(t *testing.T) {
	_, err := New(Options{}).Build(nil)
	assert.ErrorIs(t, err, internalerr.ErrEmptyTrainingSet)

	_, err = New(Options{}).Build([]shape.Sample{{Text: "a", Label: "x"}, {Text: "b"}})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
	assert.Contains(t, err.Error(), "sample 1")
}

func TestBuildDegenerateInputs(t *testing.T) {
	h, err := New(Options{}).Build([]shape.Sample{{Text: "", Label: "blank"}, {Text: "", Label: "blank"}})
	require.NoError(t, err)
	require.Len(t, h.Levels, 1)
	require.Len(t, h.Levels[0].Patterns, 1)
	assert.Empty(t, h.Levels[0].Patterns[0].Pattern.Elements)
	assert.Equal(t, 2, h.Levels[0].Patterns[0].Count.Total)

	h, err = New(Options{}).Build([]shape.Sample{{Text: "aaa", Label: "x"}, {Text: "aaa", Label: "y"}})
	require.NoError(t, err)
	require.Len(t, h.Levels, 1, "one element cannot compress")
	assert.Equal(t, map[string]int{"x": 1, "y": 1}, h.Levels[0].Patterns[0].Count.ByLabel)
}

func TestMaxLevelsStopsEarly(t *testing.T) {
	h, err := New(Options{MaxLevels: 1}).Build(scenario())
	require.NoError(t, err)
	assert.Len(t, h.Levels, 2)
	assert.Equal(t, StopMaxLevels, h.Stop)
	assert.Equal(t, 1, h.Depth())
}

func TestLearnPersistsWithStoreIDs(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	rep, err := New(Options{}).Learn(ctx, st, scenario())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Samples)
	require.Len(t, rep.Levels, 3)
	assert.Equal(t, LevelReport{Level: 1, Elements: 2, Chars: 1, Patterns: 2, Pairs: 0}, rep.Levels[1])
	assert.Equal(t, LevelReport{Level: 2, Elements: 1, Chars: 1, Patterns: 1}, rep.Levels[2])
	assert.Equal(t, 7, rep.Levels[0].Pairs)

	base, ok, err := st.LoadBase(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, base)

	c1, err := st.LoadChars(ctx, 1)
	require.NoError(t, err)
	require.Len(t, c1, 1)
	c2, err := st.LoadChars(ctx, 2)
	require.NoError(t, err)
	require.Len(t, c2, 1)
	c3, err := st.LoadChars(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, c3, "the converged level is not stored")

	// Level 2 chars reference stored level 1 chars.
	for _, e := range c2[0].Cluster {
		assert.Equal(t, shape.Ref(c1[0].ID), e.Symbol)
	}

	p0, err := st.LoadPatterns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, p0, 3)
	p1, err := st.LoadPatterns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, p1, 2)
	for _, rec := range p1 {
		assert.Equal(t, shape.Ref(c1[0].ID), rec.Pattern.Elements[0].Symbol)
	}
	p2, err := st.LoadPatterns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, p2, 1)
	assert.Equal(t, shape.Ref(c2[0].ID), p2[0].Pattern.Elements[0].Symbol)
}

func TestLearnSavesConfiguredBase(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	_, err := New(Options{Base: 4}).Learn(ctx, st, scenario())
	require.NoError(t, err)

	base, ok, err := st.LoadBase(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, base)
}

func TestLearnReplacesModel(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	b := New(Options{})

	_, err := b.Learn(ctx, st, scenario())
	require.NoError(t, err)
	_, err = b.Learn(ctx, st, []shape.Sample{{Text: "zz", Label: "z"}})
	require.NoError(t, err)

	p0, err := st.LoadPatterns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, p0, 1)
	assert.Equal(t, map[string]int{"z": 1}, p0[0].Count.ByLabel)
	c1, err := st.LoadChars(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, c1)
}

func TestLearnInputErrorKeepsModel(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	b := New(Options{})

	_, err := b.Learn(ctx, st, scenario())
	require.NoError(t, err)
	_, err = b.Learn(ctx, st, nil)
	require.ErrorIs(t, err, internalerr.ErrEmptyTrainingSet)

	p0, err := st.LoadPatterns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, p0, 3)
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) SavePattern(context.Context, shape.Pattern, shape.SampleCount) (string, error) {
	return "", f.err
}

func TestLearnPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("disk full")
	st := failingStore{Store: memstore.New(), err: boom}

	_, err := New(Options{}).Learn(context.Background(), st, scenario())
	assert.ErrorIs(t, err, boom)
}

func TestPersistRejectsUnknownProvisionalID(t *testing.T) {
	h := &Hierarchy{Levels: []Level{{
		Level: 1,
		Patterns: []PatternCount{{
			Pattern: shape.Pattern{Level: 1, Elements: []shape.RunElement{{Symbol: shape.Ref("~1.7"), Count: 1}}},
			Count:   shape.NewSampleCount(),
		}},
	}}}
	err := Persist(context.Background(), memstore.New(), h)
	assert.ErrorIs(t, err, internalerr.ErrCorrupt)
}
