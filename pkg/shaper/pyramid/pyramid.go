// Package pyramid learns the Char/Pattern hierarchy from labelled samples.
//
// Level 0 patterns are built from the raw text. Each further level clusters
// the distinct elements of the level below into Chars, rewrites every pattern
// in terms of those Chars and merges the label counts of patterns that
// coincide. Learning stops as soon as clustering no longer reduces the
// number of distinct elements.
package pyramid

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/cognicore/shaper/pkg/shaper/cluster"
	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/likelihood"
	"github.com/cognicore/shaper/pkg/shaper/rle"
	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// DefaultMaxLevels bounds the number of levels above 0.
const DefaultMaxLevels = 64

// Stop reasons reported by Build.
const (
	StopConverged = "converged"
	StopMaxLevels = "max_levels"
)

// Options configures a Builder.
type Options struct {
	Base      int
	MaxLevels int
	Logger    *slog.Logger
}

// Builder runs the learning loop.
type Builder struct {
	enc       rle.Encoder
	maxLevels int
	log       *slog.Logger
}

// New returns a Builder. Zero options fall back to defaults.
func New(opts Options) *Builder {
	if opts.MaxLevels <= 0 {
		opts.MaxLevels = DefaultMaxLevels
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{
		enc:       rle.New(opts.Base),
		maxLevels: opts.MaxLevels,
		log:       opts.Logger,
	}
}

// PatternCount is a pattern with its accumulated label statistics.
type PatternCount struct {
	Pattern shape.Pattern
	Count   shape.SampleCount
}

// Level is one finished level of the hierarchy. Chars is empty at level 0.
// Until persisted, Char IDs are provisional.
type Level struct {
	Level    int
	Chars    []shape.Char
	Patterns []PatternCount
	Elements int
	Pairs    int // distinct element transitions
}

// Hierarchy is a learned model held in memory.
type Hierarchy struct {
	Levels  []Level
	Samples int
	Stop    string
	Base    int // run-length base the patterns were encoded with
}

// Depth returns the index of the highest level.
func (h *Hierarchy) Depth() int {
	return len(h.Levels) - 1
}

// Build learns a hierarchy from samples. An empty sample set is
// internalerr.ErrEmptyTrainingSet; a sample without a label is
// internalerr.ErrInvalidInput. Empty text is a valid sample.
func (b *Builder) Build(samples []shape.Sample) (*Hierarchy, error) {
	if len(samples) == 0 {
		return nil, internalerr.ErrEmptyTrainingSet
	}

	base := make(map[string]*PatternCount)
	for i, s := range samples {
		if s.Label == "" {
			return nil, fmt.Errorf("sample %d: empty label: %w", i, internalerr.ErrInvalidInput)
		}
		p := b.enc.EncodeText(s.Text)
		pc, ok := base[p.Key()]
		if !ok {
			pc = &PatternCount{Pattern: p, Count: shape.NewSampleCount()}
			base[p.Key()] = pc
		}
		pc.Count.Add(s.Label)
	}

	h := &Hierarchy{Samples: len(samples), Stop: StopConverged, Base: b.enc.Base()}
	current := Level{Level: 0, Patterns: sortedPatterns(base)}

	for {
		counter := likelihood.NewCounter()
		for _, pc := range current.Patterns {
			counter.Add(pc.Pattern.Elements, int64(pc.Count.Total))
		}
		table := counter.Table()
		elements := table.Elements()
		current.Elements = table.Len()
		current.Pairs = counter.UniquePairs()
		h.Levels = append(h.Levels, current)

		if current.Level >= b.maxLevels {
			b.log.Warn("level limit reached", "level", current.Level, "max_levels", b.maxLevels)
			h.Stop = StopMaxLevels
			break
		}

		clusters := cluster.Partition(table, elements)
		if len(clusters) >= len(elements) {
			b.log.Debug("hierarchy converged", "level", current.Level, "elements", len(elements))
			break
		}

		next := b.ascend(current, clusters)
		b.log.Debug("level built",
			"level", next.Level,
			"chars", len(next.Chars),
			"patterns", len(next.Patterns),
			"from_elements", len(elements))
		current = next
	}

	return h, nil
}

// ascend turns the clusters of level L into level L+1 Chars and rewrites the
// patterns of level L with them.
func (b *Builder) ascend(lower Level, clusters []cluster.Cluster) Level {
	next := Level{Level: lower.Level + 1, Chars: make([]shape.Char, len(clusters))}

	owner := make(map[shape.RunElement]shape.CharID)
	for i, cl := range clusters {
		c := shape.NewChar(next.Level, cl.Elements)
		c.ID = provisionalID(next.Level, i)
		next.Chars[i] = c
		for _, e := range c.Cluster {
			owner[e] = c.ID
		}
	}

	merged := make(map[string]*PatternCount)
	for _, pc := range lower.Patterns {
		symbols := make([]shape.Symbol, len(pc.Pattern.Elements))
		for i, e := range pc.Pattern.Elements {
			symbols[i] = shape.Ref(owner[e])
		}
		p := shape.Pattern{Level: next.Level, Elements: b.enc.Encode(symbols)}
		if m, ok := merged[p.Key()]; ok {
			m.Count.Merge(pc.Count)
			continue
		}
		merged[p.Key()] = &PatternCount{Pattern: p, Count: pc.Count.Clone()}
	}
	next.Patterns = sortedPatterns(merged)
	return next
}

// provisionalID names a Char before the store assigns its real ID.
func provisionalID(level, index int) shape.CharID {
	return shape.CharID("~" + strconv.Itoa(level) + "." + strconv.Itoa(index))
}

func sortedPatterns(m map[string]*PatternCount) []PatternCount {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]PatternCount, len(keys))
	for i, k := range keys {
		out[i] = *m[k]
	}
	return out
}
