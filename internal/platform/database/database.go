package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"trackmeet/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

// Open connects to the configured store and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := openRaw(driver, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Info().Str("driver", driver).Msg("Successfully connected to database")
	return db, nil
}

func openRaw(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case config.DriverSQLite:
		db, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		// One writer at a time; transactions must not wait on a second connection.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
