package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"trackmeet/internal/platform/config"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration. It uses its own connection.
func MigrateUp(driver, dsn string) error {
	m, err := newMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func MigrateDown(driver, dsn string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migrate down: steps must be > 0")
	}
	m, err := newMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func newMigrator(driver, dsn string) (*migrate.Migrate, error) {
	db, err := openRaw(driver, dsn)
	if err != nil {
		return nil, err
	}

	m, err := migratorFor(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func migratorFor(db *sql.DB, driver string) (*migrate.Migrate, error) {
	dir := "migrations/postgres"
	if driver == config.DriverSQLite {
		dir = "migrations/sqlite"
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}

	var target migratedb.Driver
	switch driver {
	case config.DriverSQLite:
		target, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		target, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("migrations driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return m, nil
}
