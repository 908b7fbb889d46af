// Package server is the websocket front door: it upgrades connections,
// runs per-connection sessions through the login and seating state
// machine, and translates between the wire protocol and the
// controller.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/auth"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
)

// Options configures a Server.
type Options struct {
	Addr       string
	Logger     *log.Logger
	Controller *controller.Controller
	Validator  auth.Validator
}

// Server accepts websocket sessions on /ws and answers health checks
// on /health.
type Server struct {
	addr       string
	logger     *log.Logger
	controller *controller.Controller
	validator  auth.Validator
	upgrader   websocket.Upgrader
	startedAt  time.Time

	mu       sync.Mutex
	sessions map[*Session]struct{}

	// listener is set once serving starts, for tests to learn the
	// bound address.
	listenerMu sync.Mutex
	listener   net.Listener
}

// New creates a server. A nil validator accepts every login.
func New(opts Options) *Server {
	if opts.Validator == nil {
		opts.Validator = auth.NewNoopValidator()
	}
	return &Server{
		addr:       opts.Addr,
		logger:     opts.Logger.WithPrefix("server"),
		controller: opts.Controller,
		validator:  opts.Validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[*Session]struct{}),
	}
}

// Run serves until the context is cancelled, then shuts down
// gracefully: listener closed, sessions closed, controller drained.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listenerMu.Lock()
	s.listener = ln
	s.startedAt = time.Now()
	s.listenerMu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	httpServer := &http.Server{Handler: mux}

	s.logger.Info("listening", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		s.closeSessions()
		s.controller.Close()
		return nil
	})
	return g.Wait()
}

// Addr returns the bound listen address, empty before Run.
func (s *Server) Addr() string {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s, conn)
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	total := len(s.sessions)
	s.mu.Unlock()
	s.logger.Info("session connected", "session", sess.id, "total", total)
	sess.start()
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	total := len(s.sessions)
	s.mu.Unlock()
	s.logger.Info("session disconnected", "session", sess.id, "total", total)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Tables   int    `json:"tables"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.listenerMu.Lock()
	uptime := time.Since(s.startedAt)
	s.listenerMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		Uptime:   uptime.Round(time.Second).String(),
		Tables:   s.controller.GameCount(),
		Sessions: s.SessionCount(),
	})
}
