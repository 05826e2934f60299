// Package postgres stores accounts and refresh tokens in PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	defaultConnectRetries = 5
	defaultConnectBackoff = 500 * time.Millisecond
)

// poolIface is the subset of *pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config captures the settings required to open the pool.
type Config struct {
	DSN     string
	Retries uint64
	Backoff time.Duration
}

// Connect opens a pool and pings it, retrying with exponential backoff until
// the database answers or the retry budget is spent.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("POSTGRES_POOL_FAILED").Wrap(err)
	}

	retries := cfg.Retries
	if retries == 0 {
		retries = defaultConnectRetries
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultConnectBackoff
	}

	attempt := 0
	err = retry.Do(ctx, retry.WithMaxRetries(retries, retry.NewExponential(backoff)), func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("postgres not ready")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("POSTGRES_UNREACHABLE").
			With("attempts", attempt).
			Wrap(err)
	}

	log.Info().Str("host", poolCfg.ConnConfig.Host).Str("database", poolCfg.ConnConfig.Database).Msg("postgres connected")
	return pool, nil
}
