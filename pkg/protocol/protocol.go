// Package protocol defines the newline-delimited text wire format spoken
// between the relay server and its clients.
//
// Every logical unit is one UTF-8 line. The first client line is the
// handshake ("username:password"); everything after that is either a command
// ("/quit", "/msg <user> <text>") or a public message body.
package protocol

import (
	"errors"
	"strings"
)

const (
	// AuthSuccess is sent when the handshake is accepted.
	AuthSuccess = "AUTH_SUCCESS"

	// AuthFailedPrefix tags a rejected handshake; the reason follows the colon.
	AuthFailedPrefix = "AUTH_FAILED:"

	// PrivatePrefix tags a delivered private message: "PRIVATE:<from>:<text>".
	PrivatePrefix = "PRIVATE:"

	// UserListPrefix tags the full connected-user list: "USERS:<u1>,<u2>,...".
	UserListPrefix = "USERS:"

	// QuitCommand requests a graceful leave. Matched case-insensitively.
	QuitCommand = "/quit"

	// msgCommandPrefix starts a private message request.
	msgCommandPrefix = "/msg "
)

var (
	ErrHandshakeEmpty     = errors.New("protocol: empty handshake line")
	ErrHandshakeNoColon   = errors.New("protocol: handshake must be username:password")
	ErrHandshakeBadFields = errors.New("protocol: username and password must be non-empty")
)

// Handshake holds the parsed first line of a connection.
type Handshake struct {
	Username string
	Password string
}

// ParseHandshake splits the first client line on the first colon only, so
// passwords may themselves contain colons. Both halves are trimmed and must
// be non-empty.
func ParseHandshake(line string) (Handshake, error) {
	if strings.TrimSpace(line) == "" {
		return Handshake{}, ErrHandshakeEmpty
	}
	username, password, found := strings.Cut(line, ":")
	if !found {
		return Handshake{}, ErrHandshakeNoColon
	}
	h := Handshake{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
	if h.Username == "" || h.Password == "" {
		return Handshake{}, ErrHandshakeBadFields
	}
	return h, nil
}

// IsQuit reports whether a line is the quit command, case-insensitively.
func IsQuit(line string) bool {
	return strings.EqualFold(line, QuitCommand)
}

// ParsePrivate parses a "/msg <user> <text>" line. The body may contain
// spaces; only the first space after the target token splits. ok is false
// when the line is not a well-formed private message request, in which case
// the caller treats it as an ordinary public line.
func ParsePrivate(line string) (target, body string, ok bool) {
	if !strings.HasPrefix(line, msgCommandPrefix) {
		return "", "", false
	}
	rest := line[len(msgCommandPrefix):]
	target, body, found := strings.Cut(rest, " ")
	if !found {
		return "", "", false
	}
	return target, body, true
}

// FormatAuthFailed builds an AUTH_FAILED line carrying a reason.
func FormatAuthFailed(reason string) string {
	return AuthFailedPrefix + reason
}

// FormatPublic builds the fan-out form of a public message.
func FormatPublic(username, body string) string {
	return username + ": " + body
}

// FormatPrivate builds the tagged delivery line for a private message.
func FormatPrivate(from, body string) string {
	return PrivatePrefix + from + ":" + body
}

// FormatUserList builds the full connected-user list line. Callers are
// expected to pass usernames in a deterministic order.
func FormatUserList(usernames []string) string {
	return UserListPrefix + strings.Join(usernames, ",")
}
