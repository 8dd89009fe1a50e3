package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"healthchat/pkg/store"
	"healthchat/services/chat/internal/config"
)

const connectTimeout = 10 * time.Second

// storeSet holds the backends selected by STORE_DRIVER.
type storeSet struct {
	users    store.UserStore
	history  store.HistoryStore
	describe string
	closers  []func() error
}

func (s *storeSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("store close failed", "err", err)
		}
	}
	s.closers = nil
}

// fromStore uses one backend for both users and histories.
func fromStore(s store.Store, describe string) *storeSet {
	return &storeSet{users: s, history: s, describe: describe, closers: []func() error{s.Close}}
}

func openStores(ctx context.Context, cfg config.FileConfig) (*storeSet, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return fromStore(s, "postgres"), nil

	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return fromStore(s, "mongo/"+cfg.MongoDatabase), nil

	case config.DriverRedis:
		// Redis keeps history only; accounts live in process memory.
		history := store.NewRedisHistoryStore(cfg.RedisAddr, cfg.RedisPassword, "")
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := history.Ping(pingCtx); err != nil {
			_ = history.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		slog.Warn("redis driver keeps user accounts in memory; they are lost on restart")
		return &storeSet{users: store.NewMemoryStore(), history: history, describe: "redis", closers: []func() error{history.Close}}, nil

	case config.DriverMemory:
		slog.Warn("memory driver selected; all data is lost on restart")
		return fromStore(store.NewMemoryStore(), "memory"), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
