// Package compile submits settled document content to the compile service
// and turns successful responses into artifact handles.
package compile

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/logging"
	"github.com/dshills/livetex/internal/pipeline"
)

// Outcome is the result of a Submit call.
type Outcome struct {
	// Seq is the sequence number assigned to the submission.
	Seq uint64
	// Handle is the artifact produced (or reused) on success.
	Handle *artifact.Handle
	// Cached is true when the submission matched the last successful
	// content and no request was issued.
	Cached bool
	// Err is the failure reason, or ErrStale for discarded responses.
	Err error
}

// Succeeded reports whether the outcome carries a usable artifact.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Handle != nil
}

// Stale reports whether the response was discarded as stale.
func (o Outcome) Stale() bool {
	return errors.Is(o.Err, ErrStale)
}

// Pipeline submits content for compilation, discards stale responses, and
// registers successful artifacts with the lifecycle manager.
//
// Thread-safety: Submit may be called concurrently. Only the response for
// the highest issued sequence number can change the current artifact.
type Pipeline struct {
	mu       sync.Mutex
	compiler Compiler
	store    artifact.Store
	manager  *artifact.Manager
	tracker  pipeline.Tracker

	// last successful submission
	lastContent string
	lastHandle  *artifact.Handle

	stats  pipeline.Counter
	logger *logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore sets where artifact binaries are kept. Defaults to memory.
func WithStore(s artifact.Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline creates a pipeline that compiles with c and publishes
// artifacts to mgr.
func NewPipeline(c Compiler, mgr *artifact.Manager, opts ...Option) *Pipeline {
	p := &Pipeline{
		compiler: c,
		manager:  mgr,
		store:    artifact.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNull(p.logger).WithComponent("compile")
	return p
}

// Submit compiles content. If content equals the last successfully
// compiled content and that artifact is still current, the cached outcome
// is returned without contacting the service; the submission still takes
// a sequence number so older in-flight responses become stale.
//
// On failure the current artifact is left untouched.
func (p *Pipeline) Submit(ctx context.Context, content string) Outcome {
	p.mu.Lock()
	seq := p.tracker.Issue()

	if p.lastHandle != nil && p.lastContent == content && p.manager.Current() == p.lastHandle {
		p.tracker.Resolve(seq, pipeline.Succeeded)
		h := p.lastHandle
		p.mu.Unlock()

		p.stats.Add(func(s *pipeline.Stats) { s.CacheHits++ })
		p.logger.Debug("compile #%d skipped: content unchanged", seq)
		return Outcome{Seq: seq, Handle: h, Cached: true}
	}
	p.mu.Unlock()

	p.stats.Add(func(s *pipeline.Stats) { s.Requests++ })
	p.logger.Debug("compile #%d submitted (%d bytes)", seq, len(content))

	data, err := p.compiler.Compile(ctx, content)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tracker.IsStale(seq) {
		p.stats.Add(func(s *pipeline.Stats) { s.Stale++ })
		p.logger.Debug("compile #%d discarded: superseded by #%d", seq, p.tracker.Latest())
		return Outcome{Seq: seq, Err: ErrStale}
	}

	if err != nil {
		return p.fail(seq, err)
	}

	h, err := artifact.New(p.store, seq, content, data)
	if err != nil {
		return p.fail(seq, err)
	}
	if err := p.manager.Register(h); err != nil {
		return p.fail(seq, err)
	}

	p.tracker.Resolve(seq, pipeline.Succeeded)
	p.lastContent = content
	p.lastHandle = h
	p.logger.Debug("compile #%d succeeded: artifact %s", seq, h.ID)
	return Outcome{Seq: seq, Handle: h}
}

// fail must be called with p.mu held.
func (p *Pipeline) fail(seq uint64, err error) Outcome {
	p.tracker.Resolve(seq, pipeline.Failed)
	p.stats.Add(func(s *pipeline.Stats) { s.Failures++ })
	p.logger.Warn("compile #%d failed: %v", seq, err)
	return Outcome{Seq: seq, Err: &Error{Seq: seq, Err: err}}
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
