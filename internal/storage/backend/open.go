// Package backend opens the configured storage.KV implementation.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/felixgeelhaar/gandalf/internal/storage"
	"github.com/felixgeelhaar/gandalf/internal/storage/local"
	"github.com/felixgeelhaar/gandalf/internal/storage/memory"
	"github.com/felixgeelhaar/gandalf/internal/storage/redis"
	"github.com/felixgeelhaar/gandalf/internal/storage/sqlite"
)

// Backend names.
const (
	Memory = "memory"
	File   = "file"
	SQLite = "sqlite"
	Redis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Dir is the data directory for file and sqlite backends.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open returns the backend and a function that releases it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (storage.KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case Memory:
		return memory.NewStore(), noop, nil

	case File, "":
		s, err := local.NewStore(filepath.Join(cfg.Dir, "kv"))
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, noop, nil

	case SQLite:
		db, err := sqlite.Open(filepath.Join(cfg.Dir, "gandalf.db"), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewKVStore(db), db.Close, nil

	case Redis:
		s, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
