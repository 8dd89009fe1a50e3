package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"healthchat/pkg/domain"
)

const defaultRedisHistoryPrefix = "healthchat:history"

// RedisHistoryStore keeps each user's history as a Redis list of JSON
// messages. It only implements HistoryStore; users live elsewhere.
// An empty list and a missing key are the same record.
type RedisHistoryStore struct {
	client *redis.Client
	prefix string
}

// NewRedisHistoryStore builds a Redis-backed history store.
func NewRedisHistoryStore(addr, password, prefix string) *RedisHistoryStore {
	return NewRedisHistoryStoreWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}), prefix)
}

// NewRedisHistoryStoreWithClient wraps an existing client.
func NewRedisHistoryStoreWithClient(client *redis.Client, prefix string) *RedisHistoryStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisHistoryPrefix
	}
	return &RedisHistoryStore{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (s *RedisHistoryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisHistoryStore) Close() error {
	return s.client.Close()
}

// AppendExchange pushes both messages with a single RPUSH, so the pair is
// never split by a concurrent writer.
func (s *RedisHistoryStore) AppendExchange(ctx context.Context, userID, userMessage, assistantReply string) error {
	exchange := domain.NewExchange(userMessage, assistantReply, time.Now().UTC())
	values := make([]any, 0, len(exchange))
	for _, msg := range exchange {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, raw)
	}
	return s.client.RPush(ctx, s.messagesKey(userID), values...).Err()
}

// History reads the whole list.
func (s *RedisHistoryStore) History(ctx context.Context, userID string) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, s.messagesKey(userID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := validateMessages(msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ClearHistory drops the list.
func (s *RedisHistoryStore) ClearHistory(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.messagesKey(userID)).Err()
}

func (s *RedisHistoryStore) messagesKey(userID string) string {
	return s.prefix + ":" + userID + ":messages"
}
