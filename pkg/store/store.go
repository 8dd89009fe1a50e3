package store

import (
	"context"
	"errors"
	"fmt"

	"healthchat/pkg/domain"
)

// ErrDuplicateUser is returned when a write violates username or email uniqueness.
var ErrDuplicateUser = errors.New("duplicate user")

// UserStore persists user identity records.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	// UserExists reports whether any user already has the username or the email.
	UserExists(ctx context.Context, username, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
}

// HistoryStore persists one ordered message log per user.
type HistoryStore interface {
	// AppendExchange creates the record if needed and appends the user
	// message followed by the assistant reply in one write.
	AppendExchange(ctx context.Context, userID, userMessage, assistantReply string) error
	// History returns the messages in insertion order; a missing record yields
	// an empty slice.
	History(ctx context.Context, userID string) ([]domain.Message, error)
	// ClearHistory empties the record, creating it when absent.
	ClearHistory(ctx context.Context, userID string) error
}

// Store is a backend that keeps both users and histories.
type Store interface {
	UserStore
	HistoryStore
	Close() error
}

// validateMessages rejects stored messages with a role outside the known set.
func validateMessages(msgs []domain.Message) error {
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}
