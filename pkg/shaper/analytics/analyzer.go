package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// Reader is the part of store.Store the summary needs.
type Reader interface {
	LoadChars(ctx context.Context, level int) ([]shape.Char, error)
	LoadPatterns(ctx context.Context, level int) ([]store.PatternRecord, error)
}

// LevelStats describes one level of a learned model.
type LevelStats struct {
	Level     int     `json:"level"`
	Chars     int     `json:"chars"`
	Patterns  int     `json:"patterns"`
	Samples   int     `json:"samples"`
	Decisive  int     `json:"decisive"`  // patterns with a strict majority
	Ambiguous int     `json:"ambiguous"` // patterns without one
	Entropy   float64 `json:"entropy"`   // mean label entropy per pattern, in bits
}

// Stats is a snapshot of a whole model.
type Stats struct {
	Levels []LevelStats   `json:"levels"`
	Labels map[string]int `json:"labels"`
}

// Samples returns the number of training samples behind the model.
func (s Stats) Samples() int {
	if len(s.Levels) == 0 {
		return 0
	}
	return s.Levels[0].Samples
}

// TopLabels returns up to limit labels by descending sample count.
func (s Stats) TopLabels(limit int) []string {
	sc := shape.SampleCount{ByLabel: s.Labels}
	labels := sc.Labels()
	if limit > 0 && len(labels) > limit {
		labels = labels[:limit]
	}
	return labels
}

// Analyzer aggregates pattern statistics level by level.
type Analyzer struct {
	levels map[int]*LevelStats
	labels map[string]int
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		levels: make(map[int]*LevelStats),
		labels: make(map[string]int),
	}
}

func (a *Analyzer) level(l int) *LevelStats {
	ls, ok := a.levels[l]
	if !ok {
		ls = &LevelStats{Level: l}
		a.levels[l] = ls
	}
	return ls
}

// AddChars records the number of chars of a level.
func (a *Analyzer) AddChars(level, n int) {
	a.level(level).Chars += n
}

// Process consumes one stored pattern.
func (a *Analyzer) Process(rec store.PatternRecord) {
	ls := a.level(rec.Pattern.Level)
	ls.Patterns++
	ls.Samples += rec.Count.Total
	if _, ok := rec.Count.Majority(); ok {
		ls.Decisive++
	} else {
		ls.Ambiguous++
	}
	// Running sum; Snapshot turns it into a mean.
	ls.Entropy += entropy(rec.Count.ByLabel)

	if rec.Pattern.Level == 0 {
		for label, n := range rec.Count.ByLabel {
			a.labels[label] += n
		}
	}
}

// Snapshot returns the aggregated statistics ordered by level.
func (a *Analyzer) Snapshot() Stats {
	out := Stats{Labels: make(map[string]int, len(a.labels))}
	for label, n := range a.labels {
		out.Labels[label] = n
	}
	for _, ls := range a.levels {
		s := *ls
		if s.Patterns > 0 {
			s.Entropy /= float64(s.Patterns)
		}
		out.Levels = append(out.Levels, s)
	}
	sort.Slice(out.Levels, func(i, j int) bool { return out.Levels[i].Level < out.Levels[j].Level })
	return out
}

// Summarize walks a stored model from level 0 upward until a level has no
// patterns.
func Summarize(ctx context.Context, r Reader) (Stats, error) {
	a := NewAnalyzer()
	for level := 0; ; level++ {
		recs, err := r.LoadPatterns(ctx, level)
		if err != nil {
			return Stats{}, fmt.Errorf("level %d: %w", level, err)
		}
		if len(recs) == 0 {
			break
		}
		if level > 0 {
			chars, err := r.LoadChars(ctx, level)
			if err != nil {
				return Stats{}, fmt.Errorf("level %d: %w", level, err)
			}
			a.AddChars(level, len(chars))
		}
		for _, rec := range recs {
			a.Process(rec)
		}
	}
	return a.Snapshot(), nil
}

func entropy(counts map[string]int) float64 {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}
