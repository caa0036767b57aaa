// Package ascend classifies text by climbing the learned hierarchy: the text
// is encoded at level 0 and rewritten one level up through the Chars until
// some level's pattern carries a strict label majority.
package ascend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/shaper/pkg/shaper/cache"
	"github.com/cognicore/shaper/pkg/shaper/inference"
	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/rle"
	"github.com/cognicore/shaper/pkg/shaper/shape"
)

// Options configures an Engine. Base must match the base the model was
// learned with; a mismatch is internalerr.ErrInvalidConfig.
type Options struct {
	Base   int
	Logger *slog.Logger
}

// Engine implements inference.Engine over a cache.Cache.
type Engine struct {
	cache *cache.Cache
	enc   rle.Encoder
	log   *slog.Logger
}

// New creates an engine reading the model through c.
func New(c *cache.Cache, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{cache: c, enc: rle.New(opts.Base), log: opts.Logger}
}

// Classify returns the label of the first level whose pattern has a strict
// majority. Misses are reported through ok, never as errors.
func (e *Engine) Classify(ctx context.Context, text string) (string, bool, error) {
	tr, err := e.Explain(ctx, text)
	if err != nil {
		return "", false, err
	}
	return tr.Label, tr.OK, nil
}

// Explain classifies text and records each level visited.
func (e *Engine) Explain(ctx context.Context, text string) (inference.Trace, error) {
	tr := inference.Trace{Text: text}
	if err := e.checkBase(ctx); err != nil {
		return tr, err
	}
	p := e.enc.EncodeText(text)

	for {
		if err := ctx.Err(); err != nil {
			return tr, err
		}

		step := inference.Step{Level: p.Level, Pattern: p.String()}
		sc, found, err := e.cache.Lookup(ctx, p)
		if err != nil {
			return tr, err
		}
		if found {
			step.Found = true
			step.Total = sc.Total
			step.Labels = sc.Clone().ByLabel
			if label, ok := sc.Majority(); ok {
				step.Majority = label
				tr.Steps = append(tr.Steps, step)
				tr.Label, tr.OK, tr.Reason = label, true, inference.ReasonMatch
				e.log.Debug("shape matched", "level", p.Level, "label", label, "total", sc.Total)
				return tr, nil
			}
		}

		next, unmapped, err := e.ascend(ctx, p)
		if err != nil {
			return tr, err
		}
		if next == nil {
			if unmapped != nil {
				step.Unmapped = unmapped.String()
				tr.Reason = inference.ReasonUnmapped
				e.log.Debug("element has no char", "level", p.Level, "element", step.Unmapped)
			} else {
				tr.Reason = inference.ReasonExhausted
			}
			tr.Steps = append(tr.Steps, step)
			return tr, nil
		}
		tr.Steps = append(tr.Steps, step)
		p = *next
	}
}

// checkBase rejects a model learned with a different run-length base; its
// patterns would never match this engine's encoding.
func (e *Engine) checkBase(ctx context.Context) error {
	base, ok, err := e.cache.Base(ctx)
	if err != nil {
		return err
	}
	if ok && base != e.enc.Base() {
		return fmt.Errorf("model learned with base %d, classifier uses base %d: %w",
			base, e.enc.Base(), internalerr.ErrInvalidConfig)
	}
	return nil
}

// ascend rewrites p with the Chars of the next level. It returns nil when
// that level has no Chars, and the offending element when one has no Char.
func (e *Engine) ascend(ctx context.Context, p shape.Pattern) (*shape.Pattern, *shape.RunElement, error) {
	level := p.Level + 1
	chars, err := e.cache.Chars(ctx, level)
	if err != nil {
		return nil, nil, err
	}
	if len(chars) == 0 {
		return nil, nil, nil
	}

	symbols := make([]shape.Symbol, len(p.Elements))
	for i, el := range p.Elements {
		ch, ok, err := e.cache.Owner(ctx, level, el)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, &p.Elements[i], nil
		}
		symbols[i] = shape.Ref(ch.ID)
	}
	return &shape.Pattern{Level: level, Elements: e.enc.Encode(symbols)}, nil, nil
}

var _ inference.Engine = (*Engine)(nil)
