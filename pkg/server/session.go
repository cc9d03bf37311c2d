package server

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tberthier/lanchat/pkg/audit"
	"github.com/tberthier/lanchat/pkg/credential"
	"github.com/tberthier/lanchat/pkg/model"
	"github.com/tberthier/lanchat/pkg/protocol"
)

// State tracks a session through its protocol lifecycle.
type State int32

const (
	StateConnected State = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one connection's protocol state machine: handshake, relay
// loop, teardown. The worker goroutine running Run owns all session-private
// fields; other goroutines interact only through Send, Username, and
// teardown, which synchronize internally.
type Session struct {
	conn net.Conn

	registry  *Registry
	router    *Router
	creds     credential.Authenticator
	audit     audit.Sink
	presenter Presenter
	metrics   *Metrics

	state atomic.Int32

	// mu guards username/registered, which are bound exactly once during
	// the handshake and read concurrently by the router.
	mu         sync.RWMutex
	username   string
	registered bool

	wmu       sync.Mutex // serializes writes from the relay path and the router
	closeOnce sync.Once
}

// newSession creates a session for an accepted connection.
func (s *Server) newSession(conn net.Conn) *Session {
	return &Session{
		conn:      conn,
		registry:  s.registry,
		router:    s.router,
		creds:     s.creds,
		audit:     s.audit,
		presenter: s.presenter,
		metrics:   s.metrics,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Username returns the bound username and whether registration completed.
func (s *Session) Username() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username, s.registered
}

func (s *Session) bindUsername(username string) {
	s.mu.Lock()
	s.username = username
	s.registered = true
	s.mu.Unlock()
}

// Send writes one line to the client. Safe for concurrent use; delivery is
// best-effort and the caller decides whether a failure matters.
func (s *Session) Send(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := fmt.Fprintf(s.conn, "%s\n", line)
	return err
}

func (s *Session) remoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// Run drives the session to completion: handshake, relay loop, teardown.
// It is executed by exactly one worker goroutine per connection.
func (s *Session) Run() {
	defer s.teardown()

	scanner := bufio.NewScanner(s.conn)
	s.setState(StateAuthenticating)
	if !s.handshake(scanner) {
		return
	}
	s.setState(StateActive)
	s.relay(scanner)
}

// rejectAuth sends a tagged AUTH_FAILED line and records the attempt.
// Handshake failures never register any state.
func (s *Session) rejectAuth(reason, detail string) {
	_ = s.Send(protocol.FormatAuthFailed(reason))
	s.metrics.FailedAuths.Add(1)
	s.audit.Record(audit.KindError, detail)
	slog.Debug("handshake rejected", "remote", s.remoteAddr(), "reason", reason)
}

// handshake processes the first client line. It returns true only when the
// session is fully registered: credentials verified, username claimed,
// AUTH_SUCCESS delivered, and presence announced.
func (s *Session) handshake(scanner *bufio.Scanner) bool {
	if !scanner.Scan() {
		// Peer vanished before sending credentials.
		return false
	}

	hs, err := protocol.ParseHandshake(scanner.Text())
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, protocol.ErrHandshakeEmpty):
			reason = "empty credentials"
		case errors.Is(err, protocol.ErrHandshakeNoColon):
			reason = "malformed handshake, expected username:password"
		default:
			reason = "username and password must be non-empty"
		}
		s.rejectAuth(reason, "rejected handshake from "+s.remoteAddr()+": "+reason)
		return false
	}

	if !s.creds.Authenticate(hs.Username, hs.Password) {
		s.rejectAuth("invalid username or password",
			"failed authentication for "+hs.Username)
		return false
	}

	// Session-uniqueness lock, independent of credential validity: valid
	// credentials are still refused while the same name is connected
	// elsewhere.
	if !s.registry.TryClaim(hs.Username) {
		s.rejectAuth("this username is already connected",
			"duplicate connection attempt for "+hs.Username)
		return false
	}

	s.bindUsername(hs.Username)
	if err := s.Send(protocol.AuthSuccess); err != nil {
		// Claim is released by teardown.
		return false
	}

	s.metrics.SuccessfulAuths.Add(1)
	s.audit.Record(audit.KindConnection, "connection: "+hs.Username+" from "+s.remoteAddr())
	s.presenter.LogLine(hs.Username + " joined the chat")
	slog.Info("client authenticated", "user", hs.Username, "remote", s.remoteAddr())

	s.router.Broadcast("* "+hs.Username+" joined the chat", s)
	s.router.BroadcastUserList()
	return true
}

// relay processes lines until quit, read error, or forced close.
func (s *Session) relay(scanner *bufio.Scanner) {
	username, _ := s.Username()
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if protocol.IsQuit(line) {
			return
		}
		if target, body, ok := protocol.ParsePrivate(line); ok {
			if s.router.SendPrivate(username, target, body) {
				_ = s.Send("private message delivered to " + target)
			} else {
				_ = s.Send("user '" + target + "' not found or disconnected")
			}
			continue
		}

		s.metrics.PublicMessages.Add(1)
		s.presenter.LogLine("[" + username + "] " + line)
		s.audit.RecordMessage(&model.Message{Sender: username, Body: line, Kind: model.KindPublic})
		s.router.Broadcast(protocol.FormatPublic(username, line), s)
	}

	// Any read failure on an active session is an implicit disconnect;
	// other sessions only ever see the standard departure notice.
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("read error", "user", username, "err", err)
	}
}

// teardown runs the session's exit path exactly once, whichever of the
// normal loop exit, a read error, or a forced disconnect triggers it first.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)

		if username, ok := s.Username(); ok {
			s.audit.Record(audit.KindDisconnection, "disconnection: "+username)
			s.presenter.LogLine(username + " left the chat")
			slog.Info("client disconnected", "user", username)

			s.router.Broadcast("* "+username+" left the chat", s)
			s.registry.Release(username)
			s.router.BroadcastUserList()
		}

		s.registry.Remove(s)
		_ = s.conn.Close()

		s.metrics.ActiveConnections.Add(-1)
		s.metrics.TotalDisconnects.Add(1)
		s.presenter.ClientCount(s.registry.Len())

		s.setState(StateClosed)
	})
}
