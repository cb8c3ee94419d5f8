// Package source turns changes to a file on disk into full-content edit
// events.
package source

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/livetex/internal/logging"
)

// Sink receives the full content of the document after each change.
type Sink interface {
	Edit(content string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(content string)

// Edit implements Sink.
func (f SinkFunc) Edit(content string) {
	f(content)
}

// FileSource watches a single file and forwards its content to a Sink.
//
// The parent directory is watched rather than the file so that editors
// which save by writing a temporary file and renaming it over the target
// are still seen.
type FileSource struct {
	mu      sync.Mutex
	path    string
	watcher *fsnotify.Watcher
	sink    Sink
	logger  *logging.Logger

	started  bool
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup

	totalEvents atomic.Int64
	totalErrors atomic.Int64
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithLogger sets the source's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *FileSource) {
		s.logger = l
	}
}

// NewFileSource creates a source for path. Nothing is read until Start.
func NewFileSource(path string, sink Sink, opts ...Option) (*FileSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	s := &FileSource{
		path:    absPath,
		watcher: fsw,
		sink:    sink,
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNull(s.logger).WithComponent("source").WithField("path", absPath)
	return s, nil
}

// Path returns the absolute path being watched.
func (s *FileSource) Path() string {
	return s.path
}

// Start emits the current content once and begins forwarding changes.
func (s *FileSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	s.sink.Edit(string(data))

	s.closedWg.Add(1)
	go s.processLoop()
	return nil
}

// Close stops watching. It is safe to call more than once.
func (s *FileSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeCh)
	s.mu.Unlock()

	s.closedWg.Wait()
	return s.watcher.Close()
}

// Stats returns the number of handled events and watcher errors.
func (s *FileSource) Stats() (events, errs int64) {
	return s.totalEvents.Load(), s.totalErrors.Load()
}

func (s *FileSource) processLoop() {
	defer s.closedWg.Done()

	for {
		select {
		case <-s.closeCh:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.totalErrors.Add(1)
			s.logger.Warn("watch error: %v", err)
		}
	}
}

func (s *FileSource) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != s.path {
		return
	}
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		// Renamed away or mid-save; the following create event carries
		// the new content.
		if !errors.Is(err, os.ErrNotExist) {
			s.totalErrors.Add(1)
			s.logger.Warn("read: %v", err)
		}
		return
	}

	s.totalEvents.Add(1)
	s.logger.Debug("%s: %d bytes", ev.Op, len(data))
	s.sink.Edit(string(data))
}
