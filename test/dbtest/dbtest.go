// Package dbtest starts one shared PostgreSQL testcontainer per test
// binary and hands each test an isolated schema, so the store packages
// can run their tests against a real database without interfering with
// each other.
//
// In CI an external database is used instead: set CI_DATABASE_URL and
// no container is started.
package dbtest

import (
	"context"
	"crypto/rand"
	stdsql "database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// SetupDSN returns a connection string scoped to a fresh schema for
// this test. The schema is dropped when the test completes.
func SetupDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in -short mode")
	}

	ctx := context.Background()
	connStr := baseConnString(t)
	schema := schemaName(t)

	db, err := stdsql.Open("pgx", connStr)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		_ = db.Close()
	})

	// search_path travels as a runtime parameter on every pooled
	// connection, so migrations and queries both land in the test schema.
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", connStr, sep, schema)
}

func baseConnString(t *testing.T) string {
	if ci := os.Getenv("CI_DATABASE_URL"); ci != "" {
		return ci
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("start postgres container: %w", err)
			return
		}
		sharedConnStr, containerErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, containerErr, "failed to set up shared test container")
	return sharedConnStr
}

// schemaName builds a unique, PostgreSQL-safe schema name from the
// test's name plus a random suffix, kept under the 63-char identifier
// limit.
func schemaName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("generate schema suffix: %v", err)
	}
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(buf))
}
