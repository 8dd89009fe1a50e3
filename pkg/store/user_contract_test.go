package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"healthchat/pkg/domain"
)

// runUserStoreContract checks uniqueness and lookup rules every UserStore must honour.
func runUserStoreContract(t *testing.T, s UserStore) {
	t.Helper()
	ctx := context.Background()
	alice := domain.User{ID: "user-alice", Username: "alice", Email: "a@x.com", PasswordHash: "hash-a", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	if err := s.CreateUser(ctx, alice); err != nil {
		t.Fatalf("create alice: %v", err)
	}

	sameEmail := domain.User{ID: "user-bob", Username: "bob", Email: "a@x.com"}
	if err := s.CreateUser(ctx, sameEmail); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected duplicate email to fail, got %v", err)
	}
	sameName := domain.User{ID: "user-alice-2", Username: "alice", Email: "other@x.com"}
	if err := s.CreateUser(ctx, sameName); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected duplicate username to fail, got %v", err)
	}

	exists, err := s.UserExists(ctx, "nobody", "a@x.com")
	if err != nil || !exists {
		t.Fatalf("expected email match, exists=%v err=%v", exists, err)
	}
	exists, err = s.UserExists(ctx, "alice", "nobody@x.com")
	if err != nil || !exists {
		t.Fatalf("expected username match, exists=%v err=%v", exists, err)
	}
	exists, err = s.UserExists(ctx, "carol", "c@x.com")
	if err != nil || exists {
		t.Fatalf("expected no match, exists=%v err=%v", exists, err)
	}

	got, ok, err := s.GetUserByEmail(ctx, "a@x.com")
	if err != nil || !ok || got.ID != alice.ID || got.Username != "alice" || got.PasswordHash != alice.PasswordHash {
		t.Fatalf("unexpected lookup: user=%+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := s.GetUserByEmail(ctx, "missing@x.com"); ok {
		t.Fatalf("expected missing email lookup to report not found")
	}
}
