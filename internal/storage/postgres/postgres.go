// Package postgres keeps game-state blobs in the game_states table using pgx v5.
// The schema is owned by the migrations applied with cmd/migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/config"
)

// ErrSchemaMissing is returned when the game_states table does not exist.
var ErrSchemaMissing = errors.New("game_states table missing: run cmd/migrate")

// Store is a storage.BlobStore over a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to the database described by cfg and checks that the
// game_states table is in place.
//
// Precondition: cfg must have passed config validation.
// Postcondition: Returns a ready Store, or an error wrapping ErrSchemaMissing
// when migrations have not been applied. No pool is left open on error.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	s := &Store{pool: pool, logger: logger}
	if err := s.checkSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Debug("postgres pool ready",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)
	return s, nil
}

// checkSchema fails when the database is unreachable or game_states is absent.
func (s *Store) checkSchema(ctx context.Context) error {
	var table *string
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass('game_states')::text`).Scan(&table); err != nil {
		return fmt.Errorf("checking game_states table: %w", err)
	}
	if table == nil {
		return ErrSchemaMissing
	}
	return nil
}

// Health reports whether the database answers within timeout and still holds
// the game_states table.
func (s *Store) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.checkSchema(ctx)
}

// Close releases the pool.
//
// Postcondition: The Store is no longer usable.
func (s *Store) Close() {
	s.pool.Close()
}
