// Package workstore is the Work store: projects, sessions,
// conversation history, questions, specifications, conflicts, quality
// metrics, activity log, and generated-project artifacts.
package workstore

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used only to drive golang-migrate

	"github.com/specbench/workbench/pkg/store/migrations"
)

// Config holds Work-store connection settings.
type Config struct {
	DSN             string
	Database        string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Client wraps a pgx connection pool and exposes the Work-store
// operations used by every engine and agent.
type Client struct {
	pool *pgxpool.Pool

	// sessionLocks serializes conversation-history appends per
	// session, so concurrent writers on one session take strictly
	// increasing sequence numbers instead of racing on the next one.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// lockSession takes the session-scoped logical lock, creating it on
// first use. The UNIQUE (session_id, sequence) constraint backstops
// writers outside this process.
func (c *Client) lockSession(sessionID string) (unlock func()) {
	c.mu.Lock()
	lock, ok := c.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		c.sessionLocks[sessionID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// NewClient opens a pool against cfg.DSN, applies pending Work-store
// migrations, and returns a ready Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid workstore DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open workstore pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping workstore: %w", err)
	}

	migrationDB, err := stdsql.Open("pgx", cfg.DSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open workstore migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := migrations.Apply(ctx, migrationDB, "workstore", cfg.Database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate workstore: %w", err)
	}

	return &Client{pool: pool, sessionLocks: make(map[string]*sync.Mutex)}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.pool.Close()
}
