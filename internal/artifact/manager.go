package artifact

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/livetex/internal/logging"
)

// Manager keeps the current Handle and owns the release of every Handle
// registered with it.
//
// Thread-safety: All methods are safe for concurrent use. Current never
// blocks and always returns either the previous or the new Handle.
type Manager struct {
	mu      sync.Mutex
	current atomic.Pointer[Handle]
	closed  bool

	subs    map[int]func(*Handle)
	nextSub int

	logger *logging.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		subs:   make(map[int]func(*Handle)),
		logger: logging.NullLogger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNull(m.logger).WithComponent("artifact")
	return m
}

// Register makes h current. A different previously current handle is
// released before h is published; h is published even if that release
// fails. Registering after Close releases h and returns ErrClosed.
func (m *Manager) Register(h *Handle) error {
	if h == nil {
		return ErrNilHandle
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.release(h)
		return ErrClosed
	}

	if old := m.current.Load(); old != nil && old != h {
		m.release(old)
	}
	m.current.Store(h)
	subs := m.subscribers()
	m.mu.Unlock()

	m.logger.Debug("published artifact %s seq=%d size=%d", h.ID, h.Seq, h.Size())
	for _, fn := range subs {
		fn(h)
	}
	return nil
}

// Release releases h. Calling it again for the same handle is a no-op.
// Releasing the current handle clears it.
func (m *Manager) Release(h *Handle) error {
	if h == nil {
		return nil
	}

	m.mu.Lock()
	cleared := m.current.CompareAndSwap(h, nil)
	subs := m.subscribers()
	m.mu.Unlock()

	err := h.Release()
	if cleared {
		for _, fn := range subs {
			fn(nil)
		}
	}
	return err
}

// Current returns the live handle, or nil if none.
func (m *Manager) Current() *Handle {
	return m.current.Load()
}

// Subscribe registers fn to be called after the current handle changes.
// fn receives the new handle (nil when cleared) as a hint only; callers
// should re-read Current. fn runs on the registering goroutine and must not
// block or call back into the component that registered the handle. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn func(*Handle)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close releases the current handle and rejects further registrations.
// It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	h := m.current.Swap(nil)
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	m.logger.Debug("releasing artifact %s on close", h.ID)
	return h.Release()
}

// release must be called with m.mu held; failures are logged, not returned.
func (m *Manager) release(h *Handle) {
	if err := h.Release(); err != nil {
		m.logger.Error("release artifact %s: %v", h.ID, err)
		return
	}
	m.logger.Debug("released artifact %s seq=%d", h.ID, h.Seq)
}

func (m *Manager) subscribers() []func(*Handle) {
	out := make([]func(*Handle), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}
