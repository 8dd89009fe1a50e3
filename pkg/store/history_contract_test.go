package store

import (
	"context"
	"sync"
	"testing"

	"healthchat/pkg/domain"
)

func runHistoryStoreContract(t *testing.T, s HistoryStore) {
	t.Helper()
	ctx := context.Background()

	msgs, err := s.History(ctx, "nobody")
	if err != nil {
		t.Fatalf("history for missing user: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", msgs)
	}

	if err := s.AppendExchange(ctx, "user-1", "I have a headache", "Drink water."); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := s.AppendExchange(ctx, "user-1", "And a fever", "Rest."); err != nil {
		t.Fatalf("append second: %v", err)
	}
	if err := s.AppendExchange(ctx, "user-2", "other user", "other reply"); err != nil {
		t.Fatalf("append other user: %v", err)
	}

	msgs, err = s.History(ctx, "user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []struct {
		role    domain.Role
		content string
	}{
		{domain.RoleUser, "I have a headache"},
		{domain.RoleAssistant, "Drink water."},
		{domain.RoleUser, "And a fever"},
		{domain.RoleAssistant, "Rest."},
	}
	if len(msgs) != len(want) {
		t.Fatalf("history length = %d, want %d: %#v", len(msgs), len(want), msgs)
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Content != w.content {
			t.Fatalf("message %d = %+v, want role=%s content=%q", i, msgs[i], w.role, w.content)
		}
		if msgs[i].Timestamp.IsZero() {
			t.Fatalf("message %d missing timestamp", i)
		}
	}
	if !msgs[0].Timestamp.Equal(msgs[1].Timestamp) {
		t.Fatalf("pair should share the call timestamp: %v vs %v", msgs[0].Timestamp, msgs[1].Timestamp)
	}

	if err := s.ClearHistory(ctx, "user-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, err = s.History(ctx, "user-1")
	if err != nil {
		t.Fatalf("history after clear: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(msgs))
	}

	other, err := s.History(ctx, "user-2")
	if err != nil {
		t.Fatalf("history other user: %v", err)
	}
	if len(other) != 2 {
		t.Fatalf("clearing one user must not affect another, got %d", len(other))
	}

	if err := s.ClearHistory(ctx, "fresh-user"); err != nil {
		t.Fatalf("clear missing record: %v", err)
	}
	if err := s.AppendExchange(ctx, "fresh-user", "q", "a"); err != nil {
		t.Fatalf("append after clear-upsert: %v", err)
	}
	msgs, err = s.History(ctx, "fresh-user")
	if err != nil {
		t.Fatalf("history fresh user: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

// runConcurrentAppendCheck appends from many goroutines and verifies that
// no exchange is lost and no pair is split.
func runConcurrentAppendCheck(t *testing.T, s HistoryStore) {
	t.Helper()
	ctx := context.Background()
	const workers = 20
	if err := s.AppendExchange(ctx, "busy-user", "q", "a"); err != nil {
		t.Fatalf("seed append: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.AppendExchange(ctx, "busy-user", "q", "a")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}
	msgs, err := s.History(ctx, "busy-user")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2*(workers+1) {
		t.Fatalf("expected %d messages, got %d", 2*(workers+1), len(msgs))
	}
	for i := 0; i < len(msgs); i += 2 {
		if msgs[i].Role != domain.RoleUser || msgs[i+1].Role != domain.RoleAssistant {
			t.Fatalf("pair at %d interleaved: %s,%s", i, msgs[i].Role, msgs[i+1].Role)
		}
	}
}
