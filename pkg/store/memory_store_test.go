package store

import (
	"context"
	"testing"
)

func TestMemoryStoreHistoryContract(t *testing.T) {
	runHistoryStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreUserContract(t *testing.T) {
	runUserStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreConcurrentAppendsKeepPairs(t *testing.T) {
	runConcurrentAppendCheck(t, NewMemoryStore())
}

func TestMemoryStoreHistoryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.AppendExchange(ctx, "u", "q", "a"); err != nil {
		t.Fatalf("append: %v", err)
	}
	msgs, _ := s.History(ctx, "u")
	msgs[0].Content = "mutated"
	again, _ := s.History(ctx, "u")
	if again[0].Content != "q" {
		t.Fatalf("history must not expose internal storage")
	}
}
