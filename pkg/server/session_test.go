package server

import (
	"strings"
	"testing"

	"github.com/tberthier/lanchat/pkg/protocol"
)

// runScriptedSession feeds input through a fresh session synchronously and
// returns the session and its recording conn after Run completes.
func runScriptedSession(t *testing.T, srv *Server, input string) (*Session, *scriptConn) {
	t.Helper()
	conn := newScriptConn(input)
	sess := srv.newSession(conn)
	srv.Registry().Add(sess)
	sess.Run()
	return sess, conn
}

func newSessionTestServer() *Server {
	return New(DefaultConfig(), Dependencies{
		Creds: fakeAuth{"alice": "pw1", "bob": "pw2"},
	})
}

func TestHandshakeRejections(t *testing.T) {
	type tcase struct {
		input      string
		wantReason string
	}

	tcases := map[string]tcase{
		"no_colon": {
			input:      "alicepw1\n",
			wantReason: "malformed handshake, expected username:password",
		},
		"blank_line": {
			input:      "\n",
			wantReason: "empty credentials",
		},
		"empty_username": {
			input:      ":pw1\n",
			wantReason: "username and password must be non-empty",
		},
		"empty_password": {
			input:      "alice:\n",
			wantReason: "username and password must be non-empty",
		},
		"bad_credentials": {
			input:      "alice:wrong\n",
			wantReason: "invalid username or password",
		},
		"unknown_user": {
			input:      "mallory:pw\n",
			wantReason: "invalid username or password",
		},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			srv := newSessionTestServer()
			sess, conn := runScriptedSession(t, srv, tc.input)

			lines := conn.Lines()
			if len(lines) != 1 || lines[0] != protocol.FormatAuthFailed(tc.wantReason) {
				t.Errorf("want single AUTH_FAILED:%s line, got %v", tc.wantReason, lines)
			}
			if sess.State() != StateClosed {
				t.Errorf("state: want closed, got %v", sess.State())
			}
			// A failed handshake must never leave a claimed username behind.
			if !srv.Registry().TryClaim("alice") {
				t.Errorf("username was claimed by a rejected session")
			}
			if got := srv.Registry().Len(); got != 0 {
				t.Errorf("registry: want empty after teardown, got %d", got)
			}
		})
	}
}

func TestHandshakeSuccessAndQuit(t *testing.T) {
	srv := newSessionTestServer()
	sess, conn := runScriptedSession(t, srv, "alice:pw1\n/quit\n")

	lines := conn.Lines()
	if len(lines) == 0 || lines[0] != protocol.AuthSuccess {
		t.Fatalf("want AUTH_SUCCESS first, got %v", lines)
	}
	if !conn.Contains("USERS:alice") {
		t.Errorf("want own user-list push, got %v", lines)
	}
	if sess.State() != StateClosed {
		t.Errorf("state: want closed after quit, got %v", sess.State())
	}
	if !srv.Registry().TryClaim("alice") {
		t.Errorf("username not released after teardown")
	}
	if got := srv.Metrics().SuccessfulAuths.Load(); got != 1 {
		t.Errorf("SuccessfulAuths: want 1, got %d", got)
	}
}

func TestQuitIsCaseInsensitive(t *testing.T) {
	srv := newSessionTestServer()
	_, conn := runScriptedSession(t, srv, "alice:pw1\n/QUIT\n")

	for _, line := range conn.Lines() {
		if strings.HasPrefix(line, "alice: ") {
			t.Errorf("quit command was broadcast as a public line: %v", conn.Lines())
		}
	}
	if !srv.Registry().TryClaim("alice") {
		t.Errorf("username not released after /QUIT")
	}
}

func TestDuplicateUsernameRefused(t *testing.T) {
	srv := newSessionTestServer()

	// First alice stays connected: claim without tearing down.
	first := srv.newSession(&scriptConn{})
	srv.Registry().Add(first)
	if !srv.Registry().TryClaim("alice") {
		t.Fatal("setup claim failed")
	}
	first.bindUsername("alice")

	_, conn := runScriptedSession(t, srv, "alice:pw1\n")

	want := protocol.FormatAuthFailed("this username is already connected")
	if !conn.Contains(want) {
		t.Errorf("want %q, got %v", want, conn.Lines())
	}
	// The original holder keeps its claim.
	if srv.Registry().TryClaim("alice") {
		t.Errorf("duplicate rejection released the original claim")
	}
}

func TestHandshakeColonInPassword(t *testing.T) {
	srv := New(DefaultConfig(), Dependencies{
		Creds: fakeAuth{"alice": "p:w:1"},
	})
	_, conn := runScriptedSession(t, srv, "alice:p:w:1\n/quit\n")

	if lines := conn.Lines(); len(lines) == 0 || lines[0] != protocol.AuthSuccess {
		t.Errorf("password containing colons rejected: %v", lines)
	}
}

func TestRelayPublicAndPrivate(t *testing.T) {
	srv := newSessionTestServer()

	bobConn := &scriptConn{}
	bob := srv.newSession(bobConn)
	srv.Registry().Add(bob)
	if !srv.Registry().TryClaim("bob") {
		t.Fatal("setup claim failed")
	}
	bob.bindUsername("bob")

	input := "alice:pw1\n" +
		"hello\n" +
		"\n" + // blank lines are ignored
		"/msg bob hi there\n" +
		"/msg carol hi\n" +
		"/quit\n"
	_, aliceConn := runScriptedSession(t, srv, input)

	if !bobConn.Contains("alice: hello") {
		t.Errorf("bob missing public line, got %v", bobConn.Lines())
	}
	if aliceConn.Contains("alice: hello") {
		t.Errorf("alice received her own public line")
	}
	if !bobConn.Contains(protocol.FormatPrivate("alice", "hi there")) {
		t.Errorf("bob missing private line, got %v", bobConn.Lines())
	}
	if !aliceConn.Contains("private message delivered to bob") {
		t.Errorf("alice missing delivery confirmation, got %v", aliceConn.Lines())
	}
	if !aliceConn.Contains("user 'carol' not found or disconnected") {
		t.Errorf("alice missing not-found notice, got %v", aliceConn.Lines())
	}
	for _, line := range bobConn.Lines() {
		if strings.Contains(line, "carol") {
			t.Errorf("dropped private message leaked to bob: %q", line)
		}
	}

	if got := srv.Metrics().PublicMessages.Load(); got != 1 {
		t.Errorf("PublicMessages: want 1, got %d", got)
	}
	if got := srv.Metrics().PrivateMessages.Load(); got != 1 {
		t.Errorf("PrivateMessages: want 1, got %d", got)
	}
}

func TestTeardownRunsOnce(t *testing.T) {
	srv := newSessionTestServer()
	bobConn := &scriptConn{}
	bob := srv.newSession(bobConn)
	srv.Registry().Add(bob)
	if !srv.Registry().TryClaim("bob") {
		t.Fatal("setup claim failed")
	}
	bob.bindUsername("bob")

	sess, _ := runScriptedSession(t, srv, "alice:pw1\n/quit\n")

	// Forced disconnect after the normal exit must not repeat side effects.
	sess.teardown()
	sess.teardown()

	departures := 0
	for _, line := range bobConn.Lines() {
		if line == "* alice left the chat" {
			departures++
		}
	}
	if departures != 1 {
		t.Errorf("departure notice sent %d times, want exactly 1", departures)
	}
	if got := srv.Metrics().TotalDisconnects.Load(); got != 1 {
		t.Errorf("TotalDisconnects: want 1, got %d", got)
	}
}
