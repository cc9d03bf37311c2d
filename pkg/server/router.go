package server

import (
	"log/slog"

	"github.com/tberthier/lanchat/pkg/audit"
	"github.com/tberthier/lanchat/pkg/model"
	"github.com/tberthier/lanchat/pkg/protocol"
)

// Router fans messages out to registered sessions. It reads the registry
// snapshot on every call and delivers best-effort: one dead recipient never
// blocks delivery to the rest, and never surfaces an error to the sender.
//
// There is no ordering guarantee across concurrent senders; recipients may
// observe two concurrent broadcasts in either relative order.
type Router struct {
	registry  *Registry
	audit     audit.Sink
	presenter Presenter
	metrics   *Metrics
}

// NewRouter creates a router over the given registry and collaborators.
func NewRouter(registry *Registry, sink audit.Sink, presenter Presenter, metrics *Metrics) *Router {
	return &Router{
		registry:  registry,
		audit:     sink,
		presenter: presenter,
		metrics:   metrics,
	}
}

// Broadcast sends line to every registered session except excluding, which
// may be nil to exclude none. A delivery failure is logged; the recipient's
// own read loop detects the dead connection and tears itself down.
func (r *Router) Broadcast(line string, excluding *Session) {
	for _, sess := range r.registry.Snapshot() {
		if sess == excluding {
			continue
		}
		username, registered := sess.Username()
		if !registered {
			continue
		}
		if err := sess.Send(line); err != nil {
			slog.Debug("broadcast delivery failed", "to", username, "err", err)
		}
	}
}

// SendPrivate delivers a tagged private line to the session registered as
// to, exact match. It returns false when no such session is registered; the
// message is dropped and the caller tells the sender synchronously. A
// target that unregisters between lookup and delivery is an accepted
// best-effort drop; no retry.
func (r *Router) SendPrivate(from, to, body string) bool {
	for _, sess := range r.registry.Snapshot() {
		username, registered := sess.Username()
		if !registered || username != to {
			continue
		}
		if err := sess.Send(protocol.FormatPrivate(from, body)); err != nil {
			slog.Debug("private delivery failed", "from", from, "to", to, "err", err)
		}
		r.audit.RecordMessage(&model.Message{Sender: from, Body: body, Kind: model.KindPrivate, Recipient: to})
		r.metrics.PrivateMessages.Add(1)
		return true
	}
	r.metrics.PrivateMisses.Add(1)
	return false
}

// UserListLine builds the tagged, comma-joined list of all currently
// registered usernames, in sorted order so the line is deterministic.
func (r *Router) UserListLine() string {
	return protocol.FormatUserList(r.registry.Usernames())
}

// BroadcastUserList pushes the full user list to every registered session
// and to the presentation layer. Called on every join and leave.
func (r *Router) BroadcastUserList() {
	r.Broadcast(r.UserListLine(), nil)
	r.presenter.UserList(r.registry.Usernames())
}
