// Package migrations holds the schema, embedded so every binary migrates the same way.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed *.sql
var schema embed.FS

// Run brings the database up to the latest schema. Running it on an up to date
// database does nothing.
func Run(dbx *sqlx.DB) error {
	m, err := migrator(dbx)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error migrating: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("error reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	slog.Debug("migrated", "version", version)

	return nil
}

// Version reports the schema version the database is at. A database that was
// never migrated is at version 0.
func Version(dbx *sqlx.DB) (uint, error) {
	m, err := migrator(dbx)
	if err != nil {
		return 0, err
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error reading schema version: %w", err)
	}

	return version, nil
}

// The migrator isn't closed: closing it closes the database underneath.
func migrator(dbx *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schema, ".")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded schema: %w", err)
	}
	driver, err := sqlite.WithInstance(dbx.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("error preparing sqlite for migration: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("error creating migrator: %w", err)
	}

	return m, nil
}
