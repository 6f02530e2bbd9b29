// Package backends selects and opens the configured BlobStore.
package backends

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/config"
	"github.com/cory-johannsen/questweaver/internal/storage"
	"github.com/cory-johannsen/questweaver/internal/storage/memory"
	"github.com/cory-johannsen/questweaver/internal/storage/postgres"
	"github.com/cory-johannsen/questweaver/internal/storage/redis"
	"github.com/cory-johannsen/questweaver/internal/storage/sqlite"
	"github.com/cory-johannsen/questweaver/internal/storage/supabase"
)

const healthTimeout = 5 * time.Second

// Opened is a ready BlobStore plus the function that releases it.
type Opened struct {
	Store storage.BlobStore
	Close func()
	// Health reports backend reachability; nil for backends without a check.
	Health func(ctx context.Context) error
}

// Open connects to the backend named by cfg.Storage.Backend.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns an Opened whose Close is always non-nil, or an error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Opened, error) {
	backend := cfg.Storage.Backend
	logger = logger.With(zap.String("backend", backend))
	noop := func() {}

	switch backend {
	case "", "memory":
		logger.Info("game state kept in memory only")
		return Opened{Store: memory.New(), Close: noop}, nil

	case "postgres":
		s, err := postgres.Open(ctx, cfg.Database, logger)
		if err != nil {
			return Opened{}, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Info("game state stored in postgres",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
		)
		return Opened{
			Store: s,
			Close: s.Close,
			Health: func(ctx context.Context) error {
				return s.Health(ctx, healthTimeout)
			},
		}, nil

	case "redis":
		s, err := redis.Open(ctx, cfg.Redis, cfg.Storage.TTL)
		if err != nil {
			return Opened{}, fmt.Errorf("opening redis store: %w", err)
		}
		logger.Info("game state stored in redis",
			zap.String("addr", cfg.Redis.Addr),
			zap.Duration("ttl", cfg.Storage.TTL),
		)
		return Opened{Store: s, Close: closer(s.Close, logger)}, nil

	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return Opened{}, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("game state stored in sqlite", zap.String("path", cfg.SQLite.Path))
		return Opened{Store: s, Close: closer(s.Close, logger)}, nil

	case "supabase":
		s, err := supabase.Open(cfg.Supabase)
		if err != nil {
			return Opened{}, fmt.Errorf("opening supabase store: %w", err)
		}
		logger.Info("game state stored in supabase", zap.String("table", cfg.Supabase.Table))
		return Opened{Store: s, Close: noop}, nil
	}
	return Opened{}, fmt.Errorf("unknown storage backend %q", backend)
}

func closer(fn func() error, logger *zap.Logger) func() {
	return func() {
		if err := fn(); err != nil {
			logger.Warn("closing storage backend", zap.Error(err))
		}
	}
}
