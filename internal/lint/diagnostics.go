package lint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Severity is the importance of a diagnostic.
type Severity int

const (
	// SeverityError reports an error.
	SeverityError Severity = 1
	// SeverityWarning reports a warning.
	SeverityWarning Severity = 2
	// SeverityInfo reports an informational message.
	SeverityInfo Severity = 3
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseSeverity(name)
	return nil
}

// ParseSeverity maps a lint service "kind" to a severity. Unknown kinds
// are treated as warnings.
func ParseSeverity(kind string) Severity {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "error":
		return SeverityError
	case "message", "info", "information":
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// Diagnostic is a single lint finding. Line and Column are 1-based.
type Diagnostic struct {
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
}

// String renders the diagnostic as "line:col: severity: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Severity, d.Message)
}

// Set is a complete, ordered set of diagnostics for one document state.
// A published Set always replaces the previous one entirely.
type Set struct {
	Seq         uint64       `json:"seq"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	UpdatedAt   time.Time    `json:"updated_at"`

	ErrorCount   int `json:"errors"`
	WarningCount int `json:"warnings"`
	InfoCount    int `json:"infos"`
}

// NewSet normalizes diagnostics into a Set: positions are clamped to 1,
// entries are sorted by position, and at most max entries are kept when
// max is positive.
func NewSet(seq uint64, diagnostics []Diagnostic, max int) *Set {
	items := make([]Diagnostic, len(diagnostics))
	copy(items, diagnostics)

	for i := range items {
		if items[i].Line < 1 {
			items[i].Line = 1
		}
		if items[i].Column < 1 {
			items[i].Column = 1
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Line != items[j].Line {
			return items[i].Line < items[j].Line
		}
		return items[i].Column < items[j].Column
	})

	if max > 0 && len(items) > max {
		items = items[:max]
	}

	set := &Set{
		Seq:         seq,
		Diagnostics: items,
		UpdatedAt:   time.Now(),
	}
	for _, d := range items {
		switch d.Severity {
		case SeverityError:
			set.ErrorCount++
		case SeverityWarning:
			set.WarningCount++
		case SeverityInfo:
			set.InfoCount++
		}
	}
	return set
}

// Len returns the number of diagnostics.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Diagnostics)
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	c := *s
	c.Diagnostics = make([]Diagnostic, len(s.Diagnostics))
	copy(c.Diagnostics, s.Diagnostics)
	return &c
}

// Store holds the published diagnostic set and notifies subscribers when
// it is replaced.
//
// Thread-safety: Current may be called at any time and returns either the
// previous or the new set, never a mix.
type Store struct {
	current atomic.Pointer[Set]

	mu      sync.Mutex
	subs    map[int]func(*Set)
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(*Set))}
}

// Publish replaces the current set and notifies subscribers.
func (s *Store) Publish(set *Set) {
	s.current.Store(set)

	s.mu.Lock()
	subs := make([]func(*Set), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(set.Clone())
	}
}

// Current returns a copy of the published set, or nil if none.
func (s *Store) Current() *Set {
	return s.current.Load().Clone()
}

// Subscribe registers fn to receive each newly published set. fn runs on
// the publishing goroutine and must not block. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(*Set)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
