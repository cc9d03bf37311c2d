// Package server implements the LAN chat relay: the accept loop, the
// per-connection session state machine, the shared session registry, and
// the broadcast/private routing logic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tberthier/lanchat/pkg/audit"
	"github.com/tberthier/lanchat/pkg/credential"
)

// Config holds server configuration.
type Config struct {
	Addr          string        // TCP bind address (e.g. ":6464")
	DBPath        string        // SQLite database path
	MetricsAddr   string        // HTTP bind address for /metrics endpoint (empty = disabled)
	ShutdownGrace time.Duration // how long Stop waits for workers to drain

	// CLI-only action (run and exit)
	ExportUsers bool // export all users as YAML and exit
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":6464",
		MetricsAddr:   ":6465",
		DBPath:        "lanchat.db",
		ShutdownGrace: 5 * time.Second,
	}
}

// Dependencies holds the external collaborators injected into the core.
// Audit and Presenter are optional; nil selects no-op implementations.
type Dependencies struct {
	Creds     credential.Authenticator
	Audit     audit.Sink
	Presenter Presenter
}

// Server owns the accept loop and the shutdown protocol. One worker
// goroutine runs each accepted connection's session to completion.
type Server struct {
	cfg       Config
	registry  *Registry
	router    *Router
	metrics   *Metrics
	creds     credential.Authenticator
	audit     audit.Sink
	presenter Presenter

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Presenter == nil {
		deps.Presenter = NewLogPresenter()
	}
	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()
	metrics := NewMetrics()
	return &Server{
		cfg:       cfg,
		registry:  registry,
		router:    NewRouter(registry, deps.Audit, deps.Presenter, metrics),
		metrics:   metrics,
		creds:     deps.Creds,
		audit:     deps.Audit,
		presenter: deps.Presenter,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Router returns the message router.
func (s *Server) Router() *Router {
	return s.router
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listening socket and launches the accept loop. A bind
// failure is fatal and not retried; the server stays stopped.
func (s *Server) Start() error {
	if s.creds == nil {
		return fmt.Errorf("server: missing credential dependency")
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.ln = ln
	s.running.Store(true)

	addr := ln.Addr().String()
	slog.Info("chat relay listening", "addr", addr)
	s.audit.Record(audit.KindServerStart, "server started on "+addr)
	s.presenter.LogLine("server started on " + addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()
	return nil
}

// acceptLoop accepts connections until the listener closes. Accept errors
// after Stop are the expected result of closing the socket and are
// swallowed; errors while running are logged and the loop continues.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if !s.running.Load() {
				return
			}
			slog.Error("accept error", "err", err)
			continue
		}

		sess := s.newSession(conn)
		s.registry.Add(sess)
		s.metrics.TotalConnections.Add(1)
		s.metrics.ActiveConnections.Add(1)

		remote := sess.remoteAddr()
		slog.Debug("new connection", "remote", remote)
		s.audit.Record(audit.KindEvent,
			fmt.Sprintf("new connection from %s (%d clients)", remote, s.registry.Len()))
		s.presenter.ClientCount(s.registry.Len())

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.Run()
		}()
	}
}

// Stop shuts the server down: it stops accepting, forcibly disconnects
// every session in the registry through its one-shot teardown path, closes
// the listening socket, and waits for worker activity to wind down within
// the configured grace period. Workers still blocked past the grace period
// are abandoned; their closed connections are what eventually unblock them.
// Idempotent: a second call is a no-op.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	slog.Info("shutting down")
	s.cancel()
	if s.ln != nil {
		_ = s.ln.Close()
	}

	for _, sess := range s.registry.Snapshot() {
		sess.teardown()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		slog.Warn("shutdown grace period elapsed, abandoning remaining workers")
	}

	s.audit.Record(audit.KindServerStop, "server stopped")
	s.presenter.LogLine("server stopped")
	slog.Info("server stopped")
}
