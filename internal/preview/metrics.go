package preview

import (
	"sync/atomic"
	"time"
)

// Metrics tracks orchestrator activity.
type Metrics struct {
	edits            atomic.Uint64
	settles          atomic.Uint64
	skippedEmpty     atomic.Uint64
	skippedUnchanged atomic.Uint64

	compileRequests  atomic.Uint64
	compileCacheHits atomic.Uint64
	compileFailures  atomic.Uint64
	compileStale     atomic.Uint64
	compileTotalNs   atomic.Int64

	lintRequests atomic.Uint64
	lintFailures atomic.Uint64
	lintStale    atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordEdit records an edit event.
func (m *Metrics) RecordEdit() {
	m.edits.Add(1)
}

// RecordSettle records a settle event.
func (m *Metrics) RecordSettle() {
	m.settles.Add(1)
}

// RecordSkip records a settle that was not submitted.
func (m *Metrics) RecordSkip(reason error) {
	switch reason {
	case ErrEmptyInput:
		m.skippedEmpty.Add(1)
	case ErrUnchanged:
		m.skippedUnchanged.Add(1)
	}
}

// RecordCompile records a compile outcome and how long it took.
func (m *Metrics) RecordCompile(cached, stale, failed bool, d time.Duration) {
	switch {
	case cached:
		m.compileCacheHits.Add(1)
		return
	case stale:
		m.compileStale.Add(1)
	case failed:
		m.compileFailures.Add(1)
	}
	m.compileRequests.Add(1)
	m.compileTotalNs.Add(d.Nanoseconds())
}

// RecordLint records a lint outcome.
func (m *Metrics) RecordLint(stale, failed bool) {
	m.lintRequests.Add(1)
	switch {
	case stale:
		m.lintStale.Add(1)
	case failed:
		m.lintFailures.Add(1)
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	requests := m.compileRequests.Load()

	var avgCompile time.Duration
	if requests > 0 {
		avgCompile = time.Duration(m.compileTotalNs.Load() / int64(requests))
	}

	return MetricsSnapshot{
		Uptime:           time.Since(m.startTime),
		Edits:            m.edits.Load(),
		Settles:          m.settles.Load(),
		SkippedEmpty:     m.skippedEmpty.Load(),
		SkippedUnchanged: m.skippedUnchanged.Load(),
		CompileRequests:  requests,
		CompileCacheHits: m.compileCacheHits.Load(),
		CompileFailures:  m.compileFailures.Load(),
		CompileStale:     m.compileStale.Load(),
		AvgCompileTime:   avgCompile,
		LintRequests:     m.lintRequests.Load(),
		LintFailures:     m.lintFailures.Load(),
		LintStale:        m.lintStale.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime           time.Duration `json:"uptime"`
	Edits            uint64        `json:"edits"`
	Settles          uint64        `json:"settles"`
	SkippedEmpty     uint64        `json:"skipped_empty"`
	SkippedUnchanged uint64        `json:"skipped_unchanged"`
	CompileRequests  uint64        `json:"compile_requests"`
	CompileCacheHits uint64        `json:"compile_cache_hits"`
	CompileFailures  uint64        `json:"compile_failures"`
	CompileStale     uint64        `json:"compile_stale"`
	AvgCompileTime   time.Duration `json:"avg_compile_time"`
	LintRequests     uint64        `json:"lint_requests"`
	LintFailures     uint64        `json:"lint_failures"`
	LintStale        uint64        `json:"lint_stale"`
}
