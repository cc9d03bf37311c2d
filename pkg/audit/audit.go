// Package audit records server events and relayed messages for later review.
//
// The relay core treats the sink as fire-and-forget: a recording failure is
// logged and never propagated back to the message path.
package audit

import (
	"log/slog"

	"github.com/tberthier/lanchat/pkg/datastore"
	"github.com/tberthier/lanchat/pkg/model"
)

// Event kinds recorded by the server.
const (
	KindServerStart   = "SERVER_START"
	KindServerStop    = "SERVER_STOP"
	KindConnection    = "CONNECTION"
	KindDisconnection = "DISCONNECTION"
	KindError         = "ERROR"
	KindEvent         = "EVENT"
)

// Sink receives audit records from the relay core.
type Sink interface {
	// Record persists one server event. Implementations must not block the
	// caller beyond the call itself and must swallow their own failures.
	Record(kind, detail string)

	// RecordMessage persists one relayed message envelope.
	RecordMessage(message *model.Message)
}

// Recorder is the datastore-backed Sink.
type Recorder struct {
	db datastore.DataStore
}

var _ Sink = (*Recorder)(nil)

// NewRecorder creates a Recorder over the given datastore.
func NewRecorder(db datastore.DataStore) *Recorder {
	return &Recorder{db: db}
}

// Record persists one server event. Failures are logged, not returned.
func (r *Recorder) Record(kind, detail string) {
	if err := r.db.CreateEvent(kind, detail); err != nil {
		slog.Error("audit event not recorded", "kind", kind, "err", err)
	}
}

// RecordMessage persists one relayed message. Failures are logged, not
// returned.
func (r *Recorder) RecordMessage(message *model.Message) {
	if err := r.db.CreateMessage(message); err != nil {
		slog.Error("audit message not recorded", "sender", message.Sender, "err", err)
	}
}

// Nop is a Sink that discards everything. Used when auditing is disabled
// and as the default in tests.
type Nop struct{}

var _ Sink = Nop{}

func (Nop) Record(kind, detail string)           {}
func (Nop) RecordMessage(message *model.Message) {}
