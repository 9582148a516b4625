// Package identitystore is the Identity store: users and
// auth sessions. Kept deliberately minimal and separate from
// workstore so the caller-identity boundary never shares a
// connection pool or a migration history with project data.
package identitystore

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/specbench/workbench/pkg/store/migrations"
)

// Config holds Identity-store connection settings.
type Config struct {
	DSN      string
	Database string
}

// Client wraps a pgx connection pool over the users/auth_sessions tables.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient opens a pool against cfg.DSN, applies pending Identity-store
// migrations, and returns a ready Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid identitystore DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open identitystore pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping identitystore: %w", err)
	}

	migrationDB, err := stdsql.Open("pgx", cfg.DSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open identitystore migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := migrations.Apply(ctx, migrationDB, "identity", cfg.Database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate identitystore: %w", err)
	}

	return &Client{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// pruneExpiredSessions deletes auth sessions past their expiry. Called
// opportunistically from CreateAuthSession rather than on a timer,
// since this store sees light write volume.
func (c *Client) pruneExpiredSessions(ctx context.Context) {
	_, _ = c.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`, time.Now())
}
