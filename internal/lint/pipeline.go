// Package lint runs the diagnostic pass over settled document content and
// publishes the results as full replacement sets.
package lint

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/livetex/internal/logging"
	"github.com/dshills/livetex/internal/pipeline"
)

// DefaultMaxDiagnostics bounds the size of a published set.
const DefaultMaxDiagnostics = 1000

// Outcome is the result of a Submit call.
type Outcome struct {
	Seq uint64
	// Set is the published set on success.
	Set *Set
	// Err is the failure reason, or ErrStale for discarded responses.
	Err error
}

// Succeeded reports whether a set was published.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Set != nil
}

// Stale reports whether the response was discarded as stale.
func (o Outcome) Stale() bool {
	return errors.Is(o.Err, ErrStale)
}

// Pipeline submits content to the linter and publishes diagnostics.
//
// Every Submit issues a request. Failures leave the published set in
// place. Only the response for the highest issued sequence number is
// published.
type Pipeline struct {
	mu      sync.Mutex
	linter  Linter
	store   *Store
	tracker pipeline.Tracker
	max     int

	stats  pipeline.Counter
	logger *logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxDiagnostics limits how many diagnostics are published.
func WithMaxDiagnostics(n int) Option {
	return func(p *Pipeline) {
		p.max = n
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline creates a pipeline that lints with l and publishes to store.
func NewPipeline(l Linter, store *Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		linter: l,
		store:  store,
		max:    DefaultMaxDiagnostics,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNull(p.logger).WithComponent("lint")
	return p
}

// Submit lints content and publishes the resulting set.
func (p *Pipeline) Submit(ctx context.Context, content string) Outcome {
	p.mu.Lock()
	seq := p.tracker.Issue()
	p.mu.Unlock()

	p.stats.Add(func(s *pipeline.Stats) { s.Requests++ })
	p.logger.Debug("lint #%d submitted", seq)

	diagnostics, err := p.linter.Lint(ctx, content)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tracker.IsStale(seq) {
		p.stats.Add(func(s *pipeline.Stats) { s.Stale++ })
		p.logger.Debug("lint #%d discarded: superseded by #%d", seq, p.tracker.Latest())
		return Outcome{Seq: seq, Err: ErrStale}
	}

	if err != nil {
		p.tracker.Resolve(seq, pipeline.Failed)
		p.stats.Add(func(s *pipeline.Stats) { s.Failures++ })
		p.logger.Warn("lint #%d failed: %v", seq, err)
		return Outcome{Seq: seq, Err: &Error{Seq: seq, Err: err}}
	}

	set := NewSet(seq, diagnostics, p.max)
	p.store.Publish(set)
	p.tracker.Resolve(seq, pipeline.Succeeded)
	p.logger.Debug("lint #%d published %d diagnostics", seq, set.Len())
	return Outcome{Seq: seq, Set: set}
}

// Status returns the pipeline state and the sequence number it refers to.
func (p *Pipeline) Status() pipeline.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracker.Status()
}

// Stats returns request counters.
func (p *Pipeline) Stats() pipeline.Stats {
	return p.stats.Snapshot()
}

// Store returns the store diagnostics are published to.
func (p *Pipeline) Store() *Store {
	return p.store
}
