package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"healthchat/internal/util"
	"healthchat/pkg/ai"
	"healthchat/pkg/auth"
	"healthchat/pkg/domain"
	"healthchat/pkg/store"
	"healthchat/pkg/topic"
)

// RefusalReply is returned for messages outside the healthcare domain.
const RefusalReply = "I'm a healthcare assistant and can only help with health-related questions."

// SessionIssuer issues and verifies session tokens.
type SessionIssuer interface {
	Issue(userID, username string) (string, error)
	Verify(token string) (domain.Identity, error)
}

// State is the terminal state of a handled chat turn.
type State string

const (
	// StateRejected means the topic filter refused the message; nothing was stored.
	StateRejected State = "rejected"
	// StatePersisted means a reply was generated and the exchange was stored.
	StatePersisted State = "persisted"
)

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Response string
	State    State
}

// Config holds the collaborators of the core application.
// Generator may be nil; every accepted message then gets FallbackReply.
type Config struct {
	Users             store.UserStore
	History           store.HistoryStore
	Sessions          SessionIssuer
	Generator         ai.TextGenerator
	GenerationTimeout time.Duration

	// Now overrides the clock used for user creation timestamps.
	Now func() time.Time
}

// App is the core application service wiring together storage, sessions and chat logic.
type App struct {
	users     store.UserStore
	history   store.HistoryStore
	sessions  SessionIssuer
	assistant *Assistant
	now       func() time.Time
}

// New constructs the application from injected collaborators.
func New(cfg Config) (*App, error) {
	if cfg.Users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("history store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session issuer required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		users:     cfg.Users,
		history:   cfg.History,
		sessions:  cfg.Sessions,
		assistant: NewAssistant(cfg.Generator, cfg.GenerationTimeout),
		now:       now,
	}, nil
}

// Register creates a user with a bcrypt-hashed password.
func (a *App) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return domain.User{}, ErrMissingFields
	}
	exists, err := a.users.UserExists(ctx, username, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check user: %w", err)
	}
	if exists {
		return domain.User{}, ErrUserExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a session token.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := a.verifyCredentials(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := a.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (a *App) verifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	user, ok, err := a.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Authenticate resolves a bearer token to the identity it carries.
func (a *App) Authenticate(token string) (domain.Identity, error) {
	identity, err := a.sessions.Verify(token)
	if err != nil {
		if errors.Is(err, store.ErrTokenRequired) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return identity, nil
}

// Chat runs one turn: validate, filter, complete, persist.
// Off-topic messages get RefusalReply and are not stored.
func (a *App) Chat(ctx context.Context, identity domain.Identity, message string) (ChatResult, error) {
	logger := util.LoggerFromContext(ctx).With("user_id", identity.UserID)
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, ErrEmptyMessage
	}
	if !topic.IsInDomain(message) {
		logger.Info("chat message rejected by topic filter")
		return ChatResult{Response: RefusalReply, State: StateRejected}, nil
	}
	logger.Debug("chat message accepted", "keywords", topic.MatchedKeywords(message))

	reply := a.assistant.Complete(ctx, message)

	// The reply already exists at this point; store it even if the client went away.
	if err := a.history.AppendExchange(context.WithoutCancel(ctx), identity.UserID, message, reply); err != nil {
		logger.Error("failed to persist chat exchange", "err", err)
		return ChatResult{}, fmt.Errorf("%w: append exchange: %v", ErrPersistence, err)
	}
	return ChatResult{Response: reply, State: StatePersisted}, nil
}

// History returns the user's full conversation.
func (a *App) History(ctx context.Context, userID string) ([]domain.Message, error) {
	msgs, err := a.history.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %v", ErrPersistence, err)
	}
	return msgs, nil
}

// ClearHistory empties the user's conversation.
func (a *App) ClearHistory(ctx context.Context, userID string) error {
	if err := a.history.ClearHistory(ctx, userID); err != nil {
		return fmt.Errorf("%w: clear history: %v", ErrPersistence, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
