package credential_test

import (
	"testing"

	"github.com/tberthier/lanchat/pkg/credential"
	"github.com/tberthier/lanchat/pkg/datastore"
)

func newTestStore(t *testing.T) *credential.Store {
	t.Helper()
	return credential.NewStore(datastore.NewMemory())
}

func TestCreateAndAuthenticate(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateUser("alice", "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if !s.Authenticate("alice", "s3cret") {
		t.Errorf("Authenticate: valid credentials refused")
	}
	if s.Authenticate("alice", "wrong") {
		t.Errorf("Authenticate: wrong password accepted")
	}
	if s.Authenticate("bob", "s3cret") {
		t.Errorf("Authenticate: unknown user accepted")
	}
	if s.Authenticate("", "") {
		t.Errorf("Authenticate: empty credentials accepted")
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateUser("", "pw"); err == nil {
		t.Errorf("CreateUser: empty username accepted")
	}
	if err := s.CreateUser("alice", "   "); err == nil {
		t.Errorf("CreateUser: blank password accepted")
	}
	if err := s.CreateUser("bad name", "pw"); err == nil {
		t.Errorf("CreateUser: username with space accepted")
	}
}

func TestSaltsDiffer(t *testing.T) {
	db := datastore.NewMemory()
	s := credential.NewStore(db)
	if err := s.CreateUser("alice", "same"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser("bob", "same"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	alice, _ := db.GetUserByUsername("alice")
	bob, _ := db.GetUserByUsername("bob")
	if string(alice.Salt) == string(bob.Salt) {
		t.Errorf("same salt reused across accounts")
	}
	if string(alice.PasswordHash) == string(bob.PasswordHash) {
		t.Errorf("identical passwords hash identically despite distinct salts")
	}
}

func TestEnsureAdmin(t *testing.T) {
	s := newTestStore(t)

	password, err := s.EnsureAdmin()
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if password == "" {
		t.Fatalf("EnsureAdmin: want generated password on first run")
	}
	if !s.Authenticate(credential.AdminUsername, password) {
		t.Errorf("Authenticate: generated admin password refused")
	}

	again, err := s.EnsureAdmin()
	if err != nil {
		t.Fatalf("EnsureAdmin second run: %v", err)
	}
	if again != "" {
		t.Errorf("EnsureAdmin: want no password when admin exists, got %q", again)
	}
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.EnsureAdmin(); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if err := s.CreateUser("alice", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if s.Authenticate("alice", "pw") {
		t.Errorf("Authenticate: deleted user accepted")
	}

	if err := s.DeleteUser(credential.AdminUsername); err == nil {
		t.Errorf("DeleteUser: admin deletion must be refused")
	}
}
