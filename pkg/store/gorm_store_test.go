package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"healthchat/pkg/domain"
)

// startPostgres runs a throwaway Postgres and returns its DSN.
// Skipped in -short mode and when no container runtime is reachable.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("healthchat"),
		tcpostgres.WithUsername("healthchat"),
		tcpostgres.WithPassword("healthchat"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres dsn: %v", err)
	}
	return dsn
}

func openGormStore(t *testing.T, dsn string) *GormStore {
	t.Helper()
	s, err := NewGormStore(dsn)
	if err != nil {
		t.Fatalf("open gorm store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStoreAgainstPostgres(t *testing.T) {
	dsn := startPostgres(t)
	s := openGormStore(t, dsn)

	t.Run("users", func(t *testing.T) { runUserStoreContract(t, s) })
	t.Run("history", func(t *testing.T) { runHistoryStoreContract(t, s) })
	t.Run("concurrent appends", func(t *testing.T) { runConcurrentAppendCheck(t, s) })
	t.Run("reopen keeps data", func(t *testing.T) {
		// A second open re-runs migrations under the advisory lock.
		again := openGormStore(t, dsn)
		msgs, err := again.History(context.Background(), "user-2")
		if err != nil {
			t.Fatalf("history after reopen: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages after reopen, got %d", len(msgs))
		}
	})
}

func TestDecodeMessages(t *testing.T) {
	msgs, err := decodeMessages(nil)
	if err != nil || msgs == nil || len(msgs) != 0 {
		t.Fatalf("nil payload: msgs=%#v err=%v", msgs, err)
	}
	msgs, err = decodeMessages(emptyMessages)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("empty array: msgs=%#v err=%v", msgs, err)
	}
	msgs, err = decodeMessages([]byte(`[{"role":"user","content":"hi","timestamp":"2024-01-01T00:00:00Z"},{"role":"assistant","content":"hello","timestamp":"2024-01-01T00:00:00Z"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != domain.RoleUser || msgs[1].Content != "hello" {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
	if _, err := decodeMessages([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
	if _, err := decodeMessages([]byte(`[{"role":"system","content":"x","timestamp":"2024-01-01T00:00:00Z"}]`)); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestUserModelMapping(t *testing.T) {
	u := domain.User{
		ID:           "id-1",
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if got := userFromModel(userToModel(u)); got != u {
		t.Fatalf("mapping lost data: %+v", got)
	}
}
