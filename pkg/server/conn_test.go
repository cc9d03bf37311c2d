package server

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// fakeAuth authenticates against a fixed username -> password map.
type fakeAuth map[string]string

func (f fakeAuth) Authenticate(username, password string) bool {
	stored, ok := f[username]
	return ok && stored == password
}

// scriptConn is a net.Conn whose reads serve a fixed script and whose
// writes are recorded. The zero value reads EOF immediately.
type scriptConn struct {
	mu     sync.Mutex
	input  io.Reader
	output strings.Builder
	closed bool
}

func newScriptConn(input string) *scriptConn {
	return &scriptConn{input: strings.NewReader(input)}
}

func (c *scriptConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	closed := c.closed
	r := c.input
	c.mu.Unlock()
	if closed || r == nil {
		return 0, io.EOF
	}
	return r.Read(p)
}

func (c *scriptConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	c.output.Write(p)
	return len(p), nil
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Lines returns everything written to the conn, split into lines.
func (c *scriptConn) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := strings.TrimSuffix(c.output.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (c *scriptConn) Contains(line string) bool {
	for _, l := range c.Lines() {
		if l == line {
			return true
		}
	}
	return false
}

func (c *scriptConn) LocalAddr() net.Addr                { return &net.IPAddr{} }
func (c *scriptConn) RemoteAddr() net.Addr               { return &net.IPAddr{} }
func (c *scriptConn) SetDeadline(_ time.Time) error      { return nil }
func (c *scriptConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *scriptConn) SetWriteDeadline(_ time.Time) error { return nil }
