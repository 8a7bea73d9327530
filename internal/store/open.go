package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/config"
	"github.com/benvon/manasmitra/internal/database"
)

// Open builds the Store for the configured driver. The returned close
// function releases the backend connection and is never nil.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Store, func() error, error) {
	noop := func() error { return nil }
	opts := []Option{WithQuota(cfg.StoreQuotaBytes)}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return New(NewMemoryKV(), log, opts...), noop, nil

	case config.StoreDriverRedis:
		kv, err := NewRedisKVFromURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return New(kv, log, opts...), kv.Close, nil

	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		dsn := cfg.DatabaseURL
		if cfg.StoreDriver == config.StoreDriverSQLite {
			dsn = cfg.SQLitePath
		}
		db, err := database.New(ctx, cfg.StoreDriver, dsn)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return New(database.NewProfileStoreRepository(db), log, opts...), db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}
