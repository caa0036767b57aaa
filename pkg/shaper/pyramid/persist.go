package pyramid

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// Persist writes h to st in two phases: every Char bottom-up by level, then
// every Pattern. Provisional Char IDs are replaced by the IDs the store
// assigns, so each reference is saved only after its target. The base is
// saved last.
func Persist(ctx context.Context, st store.Store, h *Hierarchy) error {
	ids := make(map[shape.CharID]shape.CharID)

	for _, lvl := range h.Levels {
		for _, c := range lvl.Chars {
			cluster, err := resolve(c.Cluster, ids)
			if err != nil {
				return fmt.Errorf("char %s: %w", c.ID, err)
			}
			id, err := st.SaveChar(ctx, shape.NewChar(c.Level, cluster))
			if err != nil {
				return fmt.Errorf("save char level %d: %w", c.Level, err)
			}
			ids[c.ID] = id
		}
	}

	for _, lvl := range h.Levels {
		for _, pc := range lvl.Patterns {
			elements, err := resolve(pc.Pattern.Elements, ids)
			if err != nil {
				return fmt.Errorf("pattern %s: %w", pc.Pattern, err)
			}
			p := shape.Pattern{Level: pc.Pattern.Level, Elements: elements}
			if _, err := st.SavePattern(ctx, p, pc.Count); err != nil {
				return fmt.Errorf("save pattern level %d: %w", p.Level, err)
			}
		}
	}

	if err := st.SaveBase(ctx, h.Base); err != nil {
		return fmt.Errorf("save base: %w", err)
	}
	return nil
}

func resolve(elements []shape.RunElement, ids map[shape.CharID]shape.CharID) ([]shape.RunElement, error) {
	out := make([]shape.RunElement, len(elements))
	for i, e := range elements {
		if e.Symbol.Kind == shape.KindChar {
			id, ok := ids[e.Symbol.Char]
			if !ok {
				return nil, fmt.Errorf("unsaved char %s: %w", e.Symbol.Char, internalerr.ErrCorrupt)
			}
			e.Symbol = shape.Ref(id)
		}
		out[i] = e
	}
	return out, nil
}

// LevelReport summarizes one learned level.
type LevelReport struct {
	Level    int
	Elements int
	Chars    int
	Patterns int
	Pairs    int
}

// Report summarizes a learning run.
type Report struct {
	Samples  int
	Levels   []LevelReport
	Stop     string
	Duration time.Duration
}

// Learn replaces the model in st with one learned from samples. The samples
// are validated and the hierarchy is built before the store is touched, so
// an input error leaves the previous model in place.
func (b *Builder) Learn(ctx context.Context, st store.Store, samples []shape.Sample) (Report, error) {
	start := time.Now()

	h, err := b.Build(samples)
	if err != nil {
		return Report{}, err
	}

	if err := st.ClearAll(ctx); err != nil {
		return Report{}, fmt.Errorf("clear model: %w", err)
	}
	if err := Persist(ctx, st, h); err != nil {
		return Report{}, err
	}

	rep := Report{Samples: h.Samples, Stop: h.Stop, Duration: time.Since(start)}
	for _, lvl := range h.Levels {
		rep.Levels = append(rep.Levels, LevelReport{
			Level:    lvl.Level,
			Elements: lvl.Elements,
			Chars:    len(lvl.Chars),
			Patterns: len(lvl.Patterns),
			Pairs:    lvl.Pairs,
		})
	}
	b.log.Info("model learned",
		"samples", rep.Samples,
		"depth", h.Depth(),
		"stop", rep.Stop,
		"duration", rep.Duration)
	return rep, nil
}
