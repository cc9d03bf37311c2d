// Package credential implements username/password authentication backed by
// the datastore. Passwords are hashed with Argon2id; verification uses a
// constant-time compare.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/tberthier/lanchat/pkg/datastore"
	"github.com/tberthier/lanchat/pkg/model"
)

// AdminUsername is the account seeded on first run.
const AdminUsername = "admin"

const saltLength = 16

// Argon2id parameters: 1 pass, 64 MiB, 4 lanes, 32-byte key.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// Authenticator is the collaborator interface the relay core depends on.
// The core never sees why authentication failed, only that it did.
type Authenticator interface {
	Authenticate(username, password string) bool
}

// Store manages user accounts over a DataStore.
type Store struct {
	db datastore.DataStore
}

var _ Authenticator = (*Store)(nil)

// NewStore creates a credential store over the given datastore.
func NewStore(db datastore.DataStore) *Store {
	return &Store{db: db}
}

// HashPassword hashes a password using Argon2id with the given salt.
func HashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

func generateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("credential: generate salt: %w", err)
	}
	return salt, nil
}

// generatePassword returns a random hex password for seeded accounts.
func generatePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("credential: generate password: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}

// Authenticate verifies a username/password pair. Any store error counts as
// a failed authentication; the caller only learns pass/fail.
func (s *Store) Authenticate(username, password string) bool {
	if username == "" || password == "" {
		return false
	}
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		slog.Error("credential lookup failed", "user", username, "err", err)
		return false
	}
	if user == nil {
		return false
	}
	computed := HashPassword(password, user.Salt)
	return subtle.ConstantTimeCompare(computed, user.PasswordHash) == 1
}

// UserExists reports whether an account with this username exists.
func (s *Store) UserExists(username string) (bool, error) {
	return s.db.UserExists(username)
}

// CreateUser creates a new account with a fresh random salt.
func (s *Store) CreateUser(username, password string) error {
	if err := model.ValidateUsername(username); err != nil {
		return fmt.Errorf("credential: create user: %w", err)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("credential: create user: %w", model.ErrPasswordEmpty)
	}
	salt, err := generateSalt()
	if err != nil {
		return err
	}
	if _, err := s.db.CreateUser(username, HashPassword(password, salt), salt); err != nil {
		return err
	}
	return nil
}

// DeleteUser removes an account. The seeded admin account cannot be deleted.
func (s *Store) DeleteUser(username string) error {
	if username == AdminUsername {
		return fmt.Errorf("credential: delete user: the %s account cannot be deleted", AdminUsername)
	}
	return s.db.DeleteUser(username)
}

// EnsureAdmin creates the admin account only on first run (no admin exists).
// It returns the generated plaintext password so the caller can surface it
// once, or "" when the account already existed.
func (s *Store) EnsureAdmin() (string, error) {
	exists, err := s.db.UserExists(AdminUsername)
	if err != nil {
		return "", fmt.Errorf("credential: check admin: %w", err)
	}
	if exists {
		return "", nil
	}

	password, err := generatePassword()
	if err != nil {
		return "", err
	}
	if err := s.CreateUser(AdminUsername, password); err != nil {
		return "", fmt.Errorf("credential: seed admin: %w", err)
	}
	return password, nil
}
