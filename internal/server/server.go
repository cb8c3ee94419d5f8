// Package server exposes the current preview artifact, diagnostics, and
// change notifications to viewers over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/logging"
	"github.com/dshills/livetex/internal/preview"
)

// Response headers describing the served artifact.
const (
	HeaderArtifactID  = "X-Artifact-ID"
	HeaderArtifactSeq = "X-Artifact-Seq"
)

// Server serves one orchestrator's state.
type Server struct {
	orch     *preview.Orchestrator
	hub      *Hub
	allowed  []string
	upgrader websocket.Upgrader
	logger   *logging.Logger

	unsubs []func()
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the origins allowed to open the events socket.
// Entries may be exact origins, "*.example.com" patterns, or "*". With no
// entries only same-host origins are accepted.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowed = origins
	}
}

// WithLogger sets the server's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server for orch that pushes changes through hub. The hub
// should also be the orchestrator's notifier so failures reach viewers.
func New(orch *preview.Orchestrator, hub *Hub, opts ...Option) *Server {
	s := &Server{
		orch: orch,
		hub:  hub,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNull(s.logger).WithComponent("server")
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.unsubs = append(s.unsubs,
		orch.Artifacts().Subscribe(func(h *artifact.Handle) {
			hub.Broadcast(artifactMessage(h))
		}),
		orch.Diagnostics().Subscribe(func(set *lint.Set) {
			hub.Broadcast(diagnosticsMessage(set))
		}),
	)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /artifact", s.handleArtifact)
	mux.HandleFunc("GET /diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /source", s.handleSource)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /events", s.handleEvents)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("serving preview on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	return err
}

// Close stops pushing changes to viewers.
func (s *Server) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	// The current handle can be superseded between Current and Open.
	for range 2 {
		h := s.orch.Artifacts().Current()
		if h == nil {
			http.Error(w, "no artifact", http.StatusNotFound)
			return
		}

		rc, err := h.Open()
		if errors.Is(err, artifact.ErrReleased) {
			continue
		}
		if err != nil {
			s.logger.Error("open artifact %s: %v", h.ID, err)
			http.Error(w, "artifact unavailable", http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.FormatInt(h.Size(), 10))
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(HeaderArtifactID, h.ID.String())
		w.Header().Set(HeaderArtifactSeq, strconv.FormatUint(h.Seq, 10))
		if _, err := io.Copy(w, rc); err != nil {
			s.logger.Debug("write artifact: %v", err)
		}
		return
	}
	http.Error(w, "artifact unavailable", http.StatusServiceUnavailable)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	set := s.orch.Diagnostics().Current()
	if set == nil {
		set = &lint.Set{Diagnostics: []lint.Diagnostic{}}
	}
	s.writeJSON(w, set)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/x-tex; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, s.orch.LatestContent())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.orch.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade: %v", err)
		return
	}

	c := &client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	// Bring the viewer up to date before it sees broadcasts.
	if h := s.orch.Artifacts().Current(); h != nil {
		s.queue(c, artifactMessage(h))
	}
	if set := s.orch.Diagnostics().Current(); set != nil {
		s.queue(c, diagnosticsMessage(set))
	}

	if !s.hub.join(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (s *Server) queue(c *client, msg Message) {
	data, err := encode(msg)
	if err != nil {
		s.logger.Error("encode %s message: %v", msg.Type, err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write json: %v", err)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Not a browser.
		return true
	}

	var ok bool
	if len(s.allowed) == 0 {
		u, err := url.Parse(origin)
		ok = err == nil && strings.EqualFold(u.Host, r.Host)
	} else {
		ok = isOriginAllowed(origin, s.allowed)
	}
	if !ok {
		s.logger.Warn("rejected events connection from origin %s", origin)
	}
	return ok
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if strings.HasPrefix(a, "*.") {
			u, err := url.Parse(origin)
			if err != nil {
				continue
			}
			host := u.Hostname()
			domain := a[2:]
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}
	return false
}
