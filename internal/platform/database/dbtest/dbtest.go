// Package dbtest provides a migrated, file-backed SQLite database for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"trackmeet/internal/platform/config"
	"trackmeet/internal/platform/database"

	"github.com/stretchr/testify/require"
)

// NewSQLite returns an open handle on a fresh database under t.TempDir().
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trackmeet.db")
	require.NoError(t, database.MigrateUp(config.DriverSQLite, path))

	db, err := database.Open(context.Background(), config.DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
