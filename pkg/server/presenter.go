package server

import (
	"log/slog"
	"strings"
)

// Presenter receives push notifications for a monitoring front end: a
// dashboard, CLI, or GUI. The core only ever pushes; it never reads state
// back and never blocks on the implementation beyond the call itself, so
// implementations must return promptly.
type Presenter interface {
	// LogLine reports one human-readable activity line.
	LogLine(line string)

	// ClientCount reports the current number of live connections.
	ClientCount(n int)

	// UserList reports the currently registered usernames, sorted.
	UserList(users []string)
}

// LogPresenter is the default Presenter; it mirrors notifications to slog
// at debug level.
type LogPresenter struct{}

var _ Presenter = LogPresenter{}

// NewLogPresenter creates the slog-backed presenter.
func NewLogPresenter() LogPresenter {
	return LogPresenter{}
}

func (LogPresenter) LogLine(line string) {
	slog.Debug("activity", "line", line)
}

func (LogPresenter) ClientCount(n int) {
	slog.Debug("client count", "clients", n)
}

func (LogPresenter) UserList(users []string) {
	slog.Debug("user list", "users", strings.Join(users, ","))
}
