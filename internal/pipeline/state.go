// Package pipeline holds the state shared by the compile and lint pipelines.
package pipeline

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a pipeline.
type State int

const (
	// Idle means nothing has been submitted yet.
	Idle State = iota
	// Pending means a request is in flight.
	Pending
	// Succeeded means the latest request succeeded.
	Succeeded
	// Failed means the latest request failed.
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a pipeline state together with the sequence number it refers to.
type Status struct {
	State State  `json:"state"`
	Seq   uint64 `json:"seq"`
}

// String renders the status, e.g. "pending(3)".
func (s Status) String() string {
	if s.State == Idle {
		return s.State.String()
	}
	return fmt.Sprintf("%s(%d)", s.State, s.Seq)
}

// Tracker hands out increasing sequence numbers and records the status
// of the newest one. Responses for older sequence numbers are stale.
//
// Thread-safety: Tracker is not locked; callers hold their own mutex.
type Tracker struct {
	issued uint64
	status Status
}

// Issue assigns the next sequence number and marks it pending.
func (t *Tracker) Issue() uint64 {
	t.issued++
	t.status = Status{State: Pending, Seq: t.issued}
	return t.issued
}

// Latest returns the highest sequence number issued so far.
func (t *Tracker) Latest() uint64 {
	return t.issued
}

// IsStale reports whether seq has been superseded by a newer issue.
func (t *Tracker) IsStale(seq uint64) bool {
	return seq != t.issued
}

// Resolve records the final state for seq. Stale sequence numbers are
// ignored and Resolve reports false.
func (t *Tracker) Resolve(seq uint64, state State) bool {
	if t.IsStale(seq) {
		return false
	}
	t.status = Status{State: state, Seq: seq}
	return true
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	return t.status
}

// Stats counts pipeline activity.
type Stats struct {
	Requests  uint64 // remote requests issued
	CacheHits uint64 // submissions answered without a request
	Failures  uint64 // requests that failed
	Stale     uint64 // responses discarded as stale
}

// Counter accumulates Stats behind a mutex.
type Counter struct {
	mu    sync.Mutex
	stats Stats
}

// Add applies fn to the counters.
func (c *Counter) Add(fn func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}

// Snapshot returns a copy of the counters.
func (c *Counter) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
