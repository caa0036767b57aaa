// Package shaper is the facade over the shape classifier: it learns a model
// from labelled samples into a store and classifies text against it.
package shaper

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/cognicore/shaper/pkg/shaper/analytics"
	"github.com/cognicore/shaper/pkg/shaper/cache"
	"github.com/cognicore/shaper/pkg/shaper/inference"
	"github.com/cognicore/shaper/pkg/shaper/inference/ascend"
	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/pyramid"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// Unknown is printed for text the model cannot classify.
const Unknown = "unknown"

// Shaper is the main classifier facade
type Shaper struct {
	// mu keeps Learn and Reset out of in-flight classifications.
	mu      sync.RWMutex
	store   store.Store
	builder *pyramid.Builder
	cache   *cache.Cache
	engine  *ascend.Engine
	memo    *cache.Memo
	log     *slog.Logger
}

// Options configures a Shaper instance
type Options struct {
	Store     store.Store
	Base      int
	MaxLevels int
	MemoSize  int // verdicts remembered; 0 disables the memo
	Logger    *slog.Logger
}

// New creates a Shaper over an opened store. The Shaper owns the store and
// closes it in Close.
func New(opts Options) (*Shaper, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("shaper: no store: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	memo, err := cache.NewMemo(opts.MemoSize)
	if err != nil {
		return nil, err
	}

	c := cache.New(opts.Store)
	return &Shaper{
		store: opts.Store,
		builder: pyramid.New(pyramid.Options{
			Base:      opts.Base,
			MaxLevels: opts.MaxLevels,
			Logger:    opts.Logger,
		}),
		cache:  c,
		engine: ascend.New(c, ascend.Options{Base: opts.Base, Logger: opts.Logger}),
		memo:   memo,
		log:    opts.Logger,
	}, nil
}

// Close cleanly shuts down the Shaper instance
func (s *Shaper) Close() error {
	return s.store.Close()
}

// Learn replaces the model with one learned from samples.
func (s *Shaper) Learn(ctx context.Context, samples []shape.Sample) (pyramid.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The store may be half written on failure; never serve stale levels.
	defer s.invalidate()

	return s.builder.Learn(ctx, s.store, samples)
}

// Classify returns the label of text, or ok=false when the model does not
// know it.
func (s *Shaper) Classify(ctx context.Context, text string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, hit := s.memo.Get(text); hit {
		return v.Label, v.OK, nil
	}
	label, ok, err := s.engine.Classify(ctx, text)
	if err != nil {
		return "", false, err
	}
	s.memo.Add(text, cache.Verdict{Label: label, OK: ok})
	return label, ok, nil
}

// Explain classifies text and reports every level visited.
func (s *Shaper) Explain(ctx context.Context, text string) (inference.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Explain(ctx, text)
}

// Stats summarizes the stored model.
func (s *Shaper) Stats(ctx context.Context) (analytics.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analytics.Summarize(ctx, s.store)
}

// Reset drops every cached level and verdict. Call it after another process
// relearned the shared store.
func (s *Shaper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate()
}

// Wipe deletes the stored model.
func (s *Shaper) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.invalidate()
	return s.store.ClearAll(ctx)
}

func (s *Shaper) invalidate() {
	chars, patterns := s.cache.Levels()
	s.cache.Clear()
	s.memo.Purge()
	s.log.Debug("model cache cleared", "char_levels", chars, "pattern_levels", patterns)
}

// Result is the verdict for one input of ClassifyAll.
type Result struct {
	Text  string
	Label string
	OK    bool
}

// ClassifyAll classifies texts with up to workers goroutines and returns the
// results in input order. It stops at the first error.
func (s *Shaper) ClassifyAll(ctx context.Context, texts []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(texts))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				label, ok, err := s.Classify(ctx, texts[i])
				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("classify %q: %w", texts[i], err)
						cancel()
					})
					continue
				}
				results[i] = Result{Text: texts[i], Label: label, OK: ok}
			}
		}()
	}

feed:
	for i := range texts {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
