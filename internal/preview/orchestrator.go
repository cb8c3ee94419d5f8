// Package preview drives the edit-to-preview cycle: it debounces edits,
// submits settled content to the compile and lint pipelines concurrently,
// and owns the artifact and diagnostics state that viewers read.
package preview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/compile"
	"github.com/dshills/livetex/internal/debounce"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/logging"
	"github.com/dshills/livetex/internal/pipeline"
)

// State is the orchestrator's position in the edit-to-preview cycle.
type State int

const (
	// StateIdle means no edit has been received.
	StateIdle State = iota
	// StateAwaitingSettle means an edit was received and the quiet period
	// has not elapsed.
	StateAwaitingSettle
	// StateSubmitting means the latest settled content is being compiled
	// and linted.
	StateSubmitting
	// StateSettled means the latest settle has completed.
	StateSettled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSettle:
		return "awaiting_settle"
	case StateSubmitting:
		return "submitting"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Orchestrator wires the debounce controller, the compile and lint
// pipelines, and the artifact manager.
//
// Thread-safety: All methods are safe for concurrent use. Settles run on
// their own goroutines; a new edit never cancels an in-flight submission.
type Orchestrator struct {
	mu            sync.Mutex
	state         State
	latest        string
	settleSeq     uint64
	completedSeq  uint64
	lastCompleted string
	hasCompleted  bool
	closed        bool

	debounce *debounce.Controller
	compile  *compile.Pipeline
	lint     *lint.Pipeline
	manager  *artifact.Manager
	lintOut  *lint.Store

	notifier Notifier
	metrics  *Metrics
	logger   *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	quietPeriod    time.Duration
	store          artifact.Store
	notifier       Notifier
	logger         *logging.Logger
	maxDiagnostics int
}

// Option configures an Orchestrator.
type Option func(*options)

// WithQuietPeriod sets the debounce quiet period.
func WithQuietPeriod(d time.Duration) Option {
	return func(o *options) {
		o.quietPeriod = d
	}
}

// WithStore sets where artifact binaries are kept.
func WithStore(s artifact.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithNotifier sets the receiver of user-visible failure notifications.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLogger sets the logger used by the orchestrator and its pipelines.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxDiagnostics limits the size of published diagnostic sets.
func WithMaxDiagnostics(n int) Option {
	return func(o *options) {
		o.maxDiagnostics = n
	}
}

// New creates an orchestrator that compiles with c and lints with l.
// A nil linter disables the lint pass.
func New(c compile.Compiler, l lint.Linter, opts ...Option) *Orchestrator {
	cfg := options{
		quietPeriod:    debounce.DefaultQuietPeriod,
		maxDiagnostics: lint.DefaultMaxDiagnostics,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := logging.OrNull(cfg.logger)

	o := &Orchestrator{
		manager:  artifact.NewManager(artifact.WithLogger(logger)),
		lintOut:  lint.NewStore(),
		notifier: cfg.notifier,
		metrics:  NewMetrics(),
		logger:   logger.WithComponent("preview"),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())

	compileOpts := []compile.Option{compile.WithLogger(logger)}
	if cfg.store != nil {
		compileOpts = append(compileOpts, compile.WithStore(cfg.store))
	}
	o.compile = compile.NewPipeline(c, o.manager, compileOpts...)

	if l != nil {
		o.lint = lint.NewPipeline(l, o.lintOut,
			lint.WithLogger(logger),
			lint.WithMaxDiagnostics(cfg.maxDiagnostics),
		)
	}

	o.debounce = debounce.New(cfg.quietPeriod, o.settled)
	return o
}

// Edit records new full document content and re-arms the debounce timer.
// Edits after Close are ignored.
func (o *Orchestrator) Edit(content string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.latest = content
	o.state = StateAwaitingSettle
	o.mu.Unlock()

	o.metrics.RecordEdit()
	o.debounce.Notify(content)
}

// settled is the debounce callback.
func (o *Orchestrator) settled(content string) {
	o.metrics.RecordSettle()

	if strings.TrimSpace(content) == "" {
		o.skip(ErrEmptyInput)
		return
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.hasCompleted && o.completedSeq == o.settleSeq && content == o.lastCompleted {
		o.mu.Unlock()
		o.skip(ErrUnchanged)
		return
	}
	o.settleSeq++
	seq := o.settleSeq
	if !o.debounce.Pending() {
		o.state = StateSubmitting
	}
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Debug("settle #%d: submitting %d bytes", seq, len(content))
	go o.submit(seq, content)
}

// skip restores the state a settle would have left had it not happened.
func (o *Orchestrator) skip(reason error) {
	o.mu.Lock()
	if !o.closed && !o.debounce.Pending() {
		switch {
		case o.settleSeq == 0:
			o.state = StateIdle
		case o.completedSeq == o.settleSeq:
			o.state = StateSettled
		default:
			o.state = StateSubmitting
		}
	}
	o.mu.Unlock()

	o.metrics.RecordSkip(reason)
	o.logger.Debug("settle skipped: %v", reason)
}

func (o *Orchestrator) submit(seq uint64, content string) {
	defer o.wg.Done()

	var (
		g       errgroup.Group
		compOut compile.Outcome
		lintOut lint.Outcome
	)

	g.Go(func() error {
		start := time.Now()
		compOut = o.compile.Submit(o.ctx, content)
		o.metrics.RecordCompile(compOut.Cached, compOut.Stale(), compOut.Err != nil, time.Since(start))
		return nil
	})
	if o.lint != nil {
		g.Go(func() error {
			lintOut = o.lint.Submit(o.ctx, content)
			o.metrics.RecordLint(lintOut.Stale(), lintOut.Err != nil)
			return nil
		})
	}
	_ = g.Wait()

	o.finish(seq, content, compOut, lintOut)
}

func (o *Orchestrator) finish(seq uint64, content string, compOut compile.Outcome, lintOut lint.Outcome) {
	o.mu.Lock()
	closed := o.closed
	if seq == o.settleSeq {
		o.completedSeq = seq
		o.hasCompleted = compOut.Succeeded()
		if o.hasCompleted {
			o.lastCompleted = content
		}
		if o.state == StateSubmitting {
			o.state = StateSettled
		}
	}
	o.mu.Unlock()

	o.logger.Debug("settle #%d complete: compile=%s lint=%s", seq, outcomeText(compOut.Err), outcomeText(lintOut.Err))

	if closed || o.notifier == nil {
		return
	}
	if compOut.Err != nil && !compOut.Stale() {
		o.notifier.Notify(Notification{
			Kind:    CompileFailed,
			Seq:     seq,
			Message: CompileFailedMessage,
			Err:     compOut.Err,
		})
	}
	if lintOut.Err != nil && !lintOut.Stale() {
		o.notifier.Notify(Notification{
			Kind:    LintFailed,
			Seq:     seq,
			Message: "Diagnostics could not be refreshed.",
			Err:     lintOut.Err,
		})
	}
}

func outcomeText(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

// LatestContent returns the most recent edit, settled or not.
func (o *Orchestrator) LatestContent() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Artifacts returns the artifact manager viewers read from.
func (o *Orchestrator) Artifacts() *artifact.Manager {
	return o.manager
}

// Diagnostics returns the store diagnostic sets are published to.
func (o *Orchestrator) Diagnostics() *lint.Store {
	return o.lintOut
}

// Metrics returns the orchestrator's metrics.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// LintEnabled reports whether a lint pass runs on each settle.
func (o *Orchestrator) LintEnabled() bool {
	return o.lint != nil
}

// Snapshot is a point-in-time view of the orchestrator.
type Snapshot struct {
	State        State           `json:"state"`
	SettleSeq    uint64          `json:"settle_seq"`
	CompletedSeq uint64          `json:"completed_seq"`
	Compile      pipeline.Status `json:"compile"`
	Lint         pipeline.Status `json:"lint"`
	ArtifactID   string          `json:"artifact_id,omitempty"`
	ArtifactSeq  uint64          `json:"artifact_seq,omitempty"`
	Diagnostics  int             `json:"diagnostics"`
	Metrics      MetricsSnapshot `json:"metrics"`
}

// Snapshot returns the current state, sequence numbers, and metrics.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	s := Snapshot{
		State:        o.state,
		SettleSeq:    o.settleSeq,
		CompletedSeq: o.completedSeq,
	}
	o.mu.Unlock()

	s.Compile = o.compile.Status()
	if o.lint != nil {
		s.Lint = o.lint.Status()
	}
	if h := o.manager.Current(); h != nil {
		s.ArtifactID = h.ID.String()
		s.ArtifactSeq = h.Seq
	}
	s.Diagnostics = o.lintOut.Current().Len()
	s.Metrics = o.metrics.Snapshot()
	return s
}

// Close cancels any pending settle, aborts in-flight requests, waits for
// running submissions to finish, and releases the current artifact. It is
// safe to call more than once.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		o.debounce.Dispose()
		o.cancel()
		o.wg.Wait()

		o.closeErr = o.manager.Close()
		o.logger.Debug("closed")
	})
	return o.closeErr
}
