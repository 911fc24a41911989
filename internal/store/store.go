// Package store owns the Postgres connection pool of the recipe service and
// the embedded schema migrations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotInitialized is returned by HealthCheck on a nil or closed-over Store.
var ErrNotInitialized = errors.New("store not initialized")

// Options tunes the pool. Zero values keep the pgx defaults; a negative
// StatementCacheCapacity leaves the exec mode untouched.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 zerolog.Logger
}

// Store is opened once by the entrypoint and handed to the repositories.
type Store struct {
	pool    *pgxpool.Pool
	logger  zerolog.Logger
	timeout time.Duration
}

// New connects to dbURL and pings before returning; ConnTimeout bounds both.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	cfg, err := poolConfig(dbURL, opts)
	if err != nil {
		return nil, err
	}

	s := &Store{
		logger:  opts.Logger.With().Str("component", "store").Logger(),
		timeout: opts.ConnTimeout,
	}
	s.logger.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Dur("idle", cfg.MaxConnIdleTime).
		Dur("lifetime", cfg.MaxConnLifetime).
		Int("stmt_cache", opts.StatementCacheCapacity).
		Msg("opening pool")

	connCtx, cancel := s.bounded(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s.pool = pool

	s.logger.Info().Msg("pool ready")
	return s, nil
}

func poolConfig(dbURL string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}
	return cfg, nil
}

// NewWithPool adopts a pool opened elsewhere, as the test harness does.
func NewWithPool(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{pool: pool, logger: logger.With().Str("component", "store").Logger()}
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// Close is safe on a nil Store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Info().Msg("closing pool")
	s.pool.Close()
}

// HealthCheck pings the database within the connection timeout. /healthz
// reports its result.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrNotInitialized
	}
	checkCtx, cancel := s.bounded(ctx)
	defer cancel()
	return s.pool.Ping(checkCtx)
}

// Pool is borrowed by the repositories; the Store keeps ownership.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Stats returns nil until the pool is open.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}
