// Package migrations applies the embedded schema to sqlite and postgres.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/sqlite/*.sql files/postgres/*.sql
var migrationFiles embed.FS

// Dialect selects the migration set and the migrate database driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ErrNoVersion means the database has never been migrated.
var ErrNoVersion = errors.New("database has no schema version (needs migration)")

// CheckDBMigrationStatus verifies that the database schema is at the latest
// embedded version.
func CheckDBMigrationStatus(db *sql.DB, d Dialect) error {
	m, err := newMigrate(db, d)
	if err != nil {
		return err
	}
	// m is not closed: closing it would close db, which the caller owns.

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return ErrNoVersion
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	latest, err := LatestVersion(d)
	if err != nil {
		return err
	}

	switch {
	case version < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)", version, latest, latest-version)
	case version > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)", version, latest)
	}
	return nil
}

// MigrateUp runs all pending migrations. An up-to-date database is not an error.
func MigrateUp(db *sql.DB, d Dialect) error {
	m, err := newMigrate(db, d)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// LatestVersion returns the highest embedded migration version for d.
func LatestVersion(d Dialect) (uint, error) {
	src, err := newSource(d)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	latest, err := getLatestVersion(src)
	if err != nil {
		return 0, fmt.Errorf("failed to determine latest version: %w", err)
	}
	return latest, nil
}

func newSource(d Dialect) (source.Driver, error) {
	switch d {
	case SQLite, Postgres:
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", d)
	}

	src, err := iofs.New(migrationFiles, "files/"+string(d))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	return src, nil
}

func newMigrate(db *sql.DB, d Dialect) (*migrate.Migrate, error) {
	src, err := newSource(d)
	if err != nil {
		return nil, err
	}

	var (
		m       *migrate.Migrate
		dbErr   error
		dialect = string(d)
	)
	switch d {
	case SQLite:
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			dbErr = err
			break
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", driver)
		dbErr = err
	case Postgres:
		driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			dbErr = err
			break
		}
		m, err = migrate.NewWithInstance("iofs", src, "pgx5", driver)
		dbErr = err
	}
	if dbErr != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create %s migrate instance: %w", dialect, dbErr)
	}
	return m, nil
}

// getLatestVersion walks the source to its last version.
func getLatestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next fails once there are no more migrations.
			return version, nil
		}
		version = next
	}
}
