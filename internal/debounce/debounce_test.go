package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	contents []string
}

func (r *recorder) settled(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents = append(r.contents, content)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.contents))
	copy(out, r.contents)
	return out
}

func TestController_CoalescesBurst(t *testing.T) {
	var r recorder
	c := New(50*time.Millisecond, r.settled)
	defer c.Dispose()

	for _, s := range []string{"A", "AB", "ABC"} {
		c.Notify(s)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	got := r.get()
	if len(got) != 1 || got[0] != "ABC" {
		t.Errorf("settled = %v, want [ABC]", got)
	}
}

func TestController_SpacedNotifies(t *testing.T) {
	var r recorder
	c := New(30*time.Millisecond, r.settled)
	defer c.Dispose()

	c.Notify("one")
	time.Sleep(100 * time.Millisecond)
	c.Notify("two")
	time.Sleep(100 * time.Millisecond)

	got := r.get()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("settled = %v, want [one two]", got)
	}
}

func TestController_NeverEmitsSynchronously(t *testing.T) {
	var count atomic.Int32
	c := New(time.Hour, func(string) { count.Add(1) })
	defer c.Dispose()

	c.Notify("x")
	if count.Load() != 0 {
		t.Error("Notify emitted synchronously")
	}
	if !c.Pending() {
		t.Error("expected pending settle")
	}
	if c.Latest() != "x" {
		t.Errorf("Latest = %q", c.Latest())
	}
}

func TestController_EmitsWhitespaceContent(t *testing.T) {
	var r recorder
	c := New(20*time.Millisecond, r.settled)
	defer c.Dispose()

	c.Notify("   \n")
	time.Sleep(80 * time.Millisecond)

	got := r.get()
	if len(got) != 1 || got[0] != "   \n" {
		t.Errorf("settled = %q, want whitespace content", got)
	}
}

func TestController_Dispose(t *testing.T) {
	var count atomic.Int32
	c := New(30*time.Millisecond, func(string) { count.Add(1) })

	c.Notify("x")
	c.Dispose()
	c.Notify("y")

	time.Sleep(100 * time.Millisecond)

	if count.Load() != 0 {
		t.Errorf("count = %d, want 0 after Dispose", count.Load())
	}
	if c.Pending() {
		t.Error("Pending should be false after Dispose")
	}
}

func TestController_DisposeWaitsForRunningCallback(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	c := New(10*time.Millisecond, func(string) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	c.Notify("x")
	<-started
	c.Dispose()

	if !finished.Load() {
		t.Error("Dispose returned while settle callback was still running")
	}
}

func TestController_DefaultDelay(t *testing.T) {
	c := New(0, nil)
	if c.Delay() != DefaultQuietPeriod {
		t.Errorf("Delay = %v, want %v", c.Delay(), DefaultQuietPeriod)
	}
}
