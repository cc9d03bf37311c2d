package datastore

import "github.com/tberthier/lanchat/pkg/model"

// DataStore defines the persistence interface behind the credential store
// and the audit log. Implementations include the default SQLite store and
// an in-memory store for tests.
type DataStore interface {
	UserReadProvider
	UserWriteProvider
	MessageReadProvider
	MessageWriteProvider
	EventWriteProvider

	Close() error
}

// Compile-time checks: both stores implement DataStore.
var (
	_ DataStore = (*SQLStore)(nil)
	_ DataStore = (*MemoryStore)(nil)
)

type UserReadProvider interface {
	GetUserByUsername(username string) (*model.User, error)
	UserExists(username string) (bool, error)
	ListUsers() ([]model.User, error)
}

type UserWriteProvider interface {
	CreateUser(username string, passwordHash, salt []byte) (*model.User, error)
	DeleteUser(username string) error
}

type MessageReadProvider interface {
	ListMessages(filters model.MessageFilters) ([]model.Message, error)
}

type MessageWriteProvider interface {
	CreateMessage(message *model.Message) error
}

// EventWriteProvider persists server events (starts, stops, connections,
// errors) for the audit log.
type EventWriteProvider interface {
	CreateEvent(kind, detail string) error
}
