// Package debounce coalesces bursts of document edits into settle events.
package debounce

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the quiet period used when none is configured.
const DefaultQuietPeriod = 900 * time.Millisecond

// Controller records the latest content and emits it once no new content
// has arrived for the quiet period.
//
// Thread-safety: All methods are safe for concurrent use. The settled
// callback runs on a timer goroutine and is never called concurrently with
// itself for the same quiet period.
type Controller struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	seq      uint64 // sequence number to detect stale timer fires
	latest   string
	pending  bool
	disposed bool
	firing   sync.WaitGroup

	onSettled func(content string)
}

// New creates a controller that calls onSettled after delay of quiet.
// A non-positive delay uses DefaultQuietPeriod.
func New(delay time.Duration, onSettled func(content string)) *Controller {
	if delay <= 0 {
		delay = DefaultQuietPeriod
	}
	return &Controller{
		delay:     delay,
		onSettled: onSettled,
	}
}

// Notify records content and re-arms the quiet-period timer, cancelling
// any timer armed by an earlier call. It never emits synchronously.
// Notify after Dispose is ignored.
func (c *Controller) Notify(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}

	c.latest = content
	c.pending = true
	c.seq++
	currentSeq := c.seq

	if c.timer != nil {
		c.timer.Stop()
	}

	c.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		// Only fire if this is still the most recently armed timer.
		if c.disposed || !c.pending || c.seq != currentSeq || c.onSettled == nil {
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.timer = nil
		content := c.latest
		c.firing.Add(1)
		c.mu.Unlock()

		defer c.firing.Done()
		c.onSettled(content)
	})
}

// Pending reports whether a settle is armed but has not fired.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Latest returns the most recently notified content.
func (c *Controller) Latest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Delay returns the quiet period.
func (c *Controller) Delay() time.Duration {
	return c.delay
}

// Dispose cancels any pending timer. Once Dispose returns, no settle will
// be emitted, including one whose timer had already fired. Dispose must
// not be called from inside the settled callback.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.seq++
	c.pending = false
	c.disposed = true
	c.mu.Unlock()

	c.firing.Wait()
}
