package store

import (
	"context"
	"sync"
	"time"

	"healthchat/pkg/domain"
)

// MemoryStore keeps users and histories in-process. Suitable for tests and
// single-instance development runs.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User // key: user ID
	email     map[string]string      // email -> user ID
	username  map[string]string      // username -> user ID
	histories map[string]*domain.ChatHistory
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		email:     make(map[string]string),
		username:  make(map[string]string),
		histories: make(map[string]*domain.ChatHistory),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// CreateUser registers a user, enforcing username and email uniqueness.
func (m *MemoryStore) CreateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[u.Email]; ok {
		return ErrDuplicateUser
	}
	if _, ok := m.username[u.Username]; ok {
		return ErrDuplicateUser
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	m.username[u.Username] = u.ID
	return nil
}

// UserExists checks username and email.
func (m *MemoryStore) UserExists(_ context.Context, username, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.email[email]; ok {
		return true, nil
	}
	_, ok := m.username[username]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// AppendExchange records one user/assistant pair.
func (m *MemoryStore) AppendExchange(_ context.Context, userID, userMessage, assistantReply string) error {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.historyLocked(userID, now)
	h.Messages = append(h.Messages, domain.NewExchange(userMessage, assistantReply, now)...)
	return nil
}

// History returns a copy of the user's messages.
func (m *MemoryStore) History(_ context.Context, userID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.histories[userID]
	if !ok {
		return []domain.Message{}, nil
	}
	out := make([]domain.Message, len(h.Messages))
	copy(out, h.Messages)
	return out, nil
}

// ClearHistory empties the user's messages.
func (m *MemoryStore) ClearHistory(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.historyLocked(userID, time.Now().UTC())
	h.Messages = []domain.Message{}
	return nil
}

func (m *MemoryStore) historyLocked(userID string, now time.Time) *domain.ChatHistory {
	h, ok := m.histories[userID]
	if !ok {
		h = &domain.ChatHistory{UserID: userID, Messages: []domain.Message{}, CreatedAt: now}
		m.histories[userID] = h
	}
	return h
}
