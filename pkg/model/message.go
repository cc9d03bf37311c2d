// Package model defines the persistent and in-memory entities shared by the
// relay core, the credential store, and the audit log.
package model

import "time"

// MessageKind distinguishes public fan-out from direct delivery.
type MessageKind string

const (
	KindPublic  MessageKind = "PUBLIC"
	KindPrivate MessageKind = "PRIVATE"
)

// Message is the transient envelope the router hands to the audit sink.
// The relay core itself never persists messages; only the audit collaborator
// gives them a durable form.
type Message struct {
	ID        int64       `json:"id"`
	Sender    string      `json:"sender"`
	Body      string      `json:"body"`
	Kind      MessageKind `json:"kind"`
	Recipient string      `json:"recipient,omitempty"` // set only for KindPrivate
	CreatedAt time.Time   `json:"created_at"`
}

// MessageFilters narrows ListMessages results. Zero values mean "any".
type MessageFilters struct {
	Sender string
	Kind   MessageKind
	Limit  int
}
