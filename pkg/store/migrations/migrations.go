// Package migrations embeds the SQL schema for both logical stores
// and applies it with golang-migrate on startup.
package migrations

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed identity workstore
var migrationsFS embed.FS

// Apply runs every pending migration under subdir ("identity" or
// "workstore") against db, using dbName to namespace golang-migrate's
// internal version table per logical store.
func Apply(ctx context.Context, db *stdsql.DB, subdir, dbName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: fmt.Sprintf("schema_migrations_%s", subdir),
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sub, err := embed.FS.ReadDir(migrationsFS, subdir)
	if err != nil || len(sub) == 0 {
		return fmt.Errorf("no embedded migrations found under %s", subdir)
	}

	sourceDriver, err := iofs.New(migrationsFS, subdir)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply %s migrations: %w", subdir, err)
	}

	return nil
}
