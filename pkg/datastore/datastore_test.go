package datastore_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tberthier/lanchat/pkg/datastore"
	"github.com/tberthier/lanchat/pkg/model"
)

// stores runs a subtest against both DataStore implementations so SQLite
// and the in-memory test double cannot drift apart.
func stores(t *testing.T, fn func(t *testing.T, db datastore.DataStore)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		db, err := datastore.NewSQL(dbPath)
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() {
			if err := db.Close(); err != nil {
				t.Errorf("close db: %v", err)
			}
		})
		fn(t, db)
	})

	t.Run("memory", func(t *testing.T) {
		fn(t, datastore.NewMemory())
	})
}

func TestCreateUser(t *testing.T) {
	type tcase struct {
		username  string
		hash      []byte
		expectErr bool
	}

	tcases := map[string]tcase{
		"valid": {
			username: "johndoe",
			hash:     []byte("hash"),
		},
		"injection_username": { // invalid chars (quotes, spaces, equals)
			username:  "' OR '1'='1",
			hash:      []byte("hash"),
			expectErr: true,
		},
		"empty_username": {
			username:  "",
			hash:      []byte("hash"),
			expectErr: true,
		},
		"too_long_username": { // 33 characters
			username:  strings.Repeat("a", 33),
			hash:      []byte("hash"),
			expectErr: true,
		},
		"empty_hash": {
			username:  "janedoe",
			hash:      nil,
			expectErr: true,
		},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			stores(t, func(t *testing.T, db datastore.DataStore) {
				got, err := db.CreateUser(tc.username, tc.hash, []byte("salt"))
				if tc.expectErr {
					if err == nil {
						t.Fatalf("CreateUser: expected error, got nil")
					}
					return
				}
				if err != nil {
					t.Fatalf("CreateUser: unexpected error: %v", err)
				}

				want := &model.User{
					ID:           got.ID,
					Username:     tc.username,
					PasswordHash: tc.hash,
					Salt:         []byte("salt"),
				}
				if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.User{}, "CreatedAt")); diff != "" {
					t.Errorf("CreateUser mismatch (-want +got):\n%s", diff)
				}
			})
		})
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	stores(t, func(t *testing.T, db datastore.DataStore) {
		if _, err := db.CreateUser("johndoe", []byte("h1"), []byte("s1")); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if _, err := db.CreateUser("johndoe", []byte("h2"), []byte("s2")); err == nil {
			t.Fatalf("CreateUser: expected unique-constraint error for duplicate username")
		}
	})
}

func TestGetUserByUsername(t *testing.T) {
	stores(t, func(t *testing.T, db datastore.DataStore) {
		created, err := db.CreateUser("johndoe", []byte("hash"), []byte("salt"))
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		got, err := db.GetUserByUsername("johndoe")
		if err != nil {
			t.Fatalf("GetUserByUsername: %v", err)
		}
		if diff := cmp.Diff(created, got, cmpopts.IgnoreFields(model.User{}, "CreatedAt")); diff != "" {
			t.Errorf("GetUserByUsername mismatch (-want +got):\n%s", diff)
		}

		missing, err := db.GetUserByUsername("nobody")
		if err != nil {
			t.Fatalf("GetUserByUsername: %v", err)
		}
		if missing != nil {
			t.Errorf("GetUserByUsername: want nil for missing user, got %+v", missing)
		}
	})
}

func TestUserExistsAndDelete(t *testing.T) {
	stores(t, func(t *testing.T, db datastore.DataStore) {
		if _, err := db.CreateUser("johndoe", []byte("hash"), []byte("salt")); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		exists, err := db.UserExists("johndoe")
		if err != nil || !exists {
			t.Fatalf("UserExists: want true, got %t (err %v)", exists, err)
		}

		if err := db.DeleteUser("johndoe"); err != nil {
			t.Fatalf("DeleteUser: %v", err)
		}
		exists, err = db.UserExists("johndoe")
		if err != nil || exists {
			t.Fatalf("UserExists after delete: want false, got %t (err %v)", exists, err)
		}

		// Deleting a missing user is not an error.
		if err := db.DeleteUser("nobody"); err != nil {
			t.Fatalf("DeleteUser missing: %v", err)
		}
	})
}

func TestListUsersOrdered(t *testing.T) {
	stores(t, func(t *testing.T, db datastore.DataStore) {
		for _, name := range []string{"carol", "alice", "bob"} {
			if _, err := db.CreateUser(name, []byte("hash"), []byte("salt")); err != nil {
				t.Fatalf("CreateUser(%q): %v", name, err)
			}
		}

		users, err := db.ListUsers()
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		// Insertion order by ID.
		want := []string{"carol", "alice", "bob"}
		var got []string
		for _, u := range users {
			got = append(got, u.Username)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ListUsers order mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestMessages(t *testing.T) {
	stores(t, func(t *testing.T, db datastore.DataStore) {
		public := &model.Message{Sender: "alice", Body: "hello"}
		if err := db.CreateMessage(public); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
		if public.Kind != model.KindPublic {
			t.Errorf("CreateMessage: default kind want PUBLIC, got %s", public.Kind)
		}

		private := &model.Message{Sender: "alice", Body: "psst", Kind: model.KindPrivate, Recipient: "bob"}
		if err := db.CreateMessage(private); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
		other := &model.Message{Sender: "bob", Body: "hi", Kind: model.KindPublic}
		if err := db.CreateMessage(other); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}

		all, err := db.ListMessages(model.MessageFilters{})
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("ListMessages: want 3, got %d", len(all))
		}
		// Newest first.
		if all[0].Sender != "bob" {
			t.Errorf("ListMessages: want newest first, got %+v", all[0])
		}

		privates, err := db.ListMessages(model.MessageFilters{Sender: "alice", Kind: model.KindPrivate})
		if err != nil {
			t.Fatalf("ListMessages filtered: %v", err)
		}
		if len(privates) != 1 || privates[0].Recipient != "bob" {
			t.Errorf("ListMessages filtered: want alice->bob private, got %+v", privates)
		}

		limited, err := db.ListMessages(model.MessageFilters{Limit: 2})
		if err != nil {
			t.Fatalf("ListMessages limited: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("ListMessages limited: want 2, got %d", len(limited))
		}
	})
}

func TestCreateEvent(t *testing.T) {
	stores(t, func(t *testing.T, db datastore.DataStore) {
		if err := db.CreateEvent("SERVER_START", "server started on :6464"); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	})
}
