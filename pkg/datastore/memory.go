package datastore

import (
	"fmt"
	"sync"
	"time"

	"github.com/tberthier/lanchat/pkg/model"
)

// MemoryStore provides an in-memory DataStore implementation for tests.
// It mirrors SQLite behavior for validation and error handling.
type MemoryStore struct {
	mu sync.RWMutex

	now func() time.Time

	nextUserID    int64
	nextMessageID int64

	usersByUsername map[string]*model.User
	messages        []model.Message
	events          []Event
}

// Event is one recorded server event, exposed so tests can assert on the
// audit trail.
type Event struct {
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:             now,
		nextUserID:      1,
		nextMessageID:   1,
		usersByUsername: make(map[string]*model.User),
	}
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

// CreateUser inserts a new account and returns it with the assigned ID.
func (s *MemoryStore) CreateUser(username string, passwordHash, salt []byte) (*model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("datastore: create user: %w", err)
	}
	if len(passwordHash) == 0 {
		return nil, fmt.Errorf("datastore: create user: %w", model.ErrPasswordEmpty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByUsername[username]; exists {
		return nil, fmt.Errorf("datastore: create user: constraint failed: UNIQUE constraint failed: users.username")
	}
	u := &model.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: append([]byte(nil), passwordHash...),
		Salt:         append([]byte(nil), salt...),
		CreatedAt:    s.now(),
	}
	s.nextUserID++
	s.usersByUsername[username] = u
	copied := *u
	return &copied, nil
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) when
// the user does not exist.
func (s *MemoryStore) GetUserByUsername(username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByUsername[username]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// UserExists reports whether an account with this username exists.
func (s *MemoryStore) UserExists(username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.usersByUsername[username]
	return ok, nil
}

// DeleteUser removes an account by username.
func (s *MemoryStore) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.usersByUsername, username)
	return nil
}

// ListUsers returns all accounts ordered by ID.
func (s *MemoryStore) ListUsers() ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, *u)
	}
	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && users[j-1].ID > users[j].ID; j-- {
			users[j-1], users[j] = users[j], users[j-1]
		}
	}
	return users, nil
}

// CreateMessage records one relayed message.
func (s *MemoryStore) CreateMessage(message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.Kind == "" {
		message.Kind = model.KindPublic
	}
	message.ID = s.nextMessageID
	s.nextMessageID++
	message.CreatedAt = s.now()
	s.messages = append(s.messages, *message)
	return nil
}

// ListMessages returns audited messages, newest first, honoring filters.
func (s *MemoryStore) ListMessages(filters model.MessageFilters) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if filters.Sender != "" && m.Sender != filters.Sender {
			continue
		}
		if filters.Kind != "" && m.Kind != filters.Kind {
			continue
		}
		out = append(out, m)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}

// CreateEvent records one server event.
func (s *MemoryStore) CreateEvent(kind, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: kind, Detail: detail, CreatedAt: s.now()})
	return nil
}

// Events returns a copy of all recorded events.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
