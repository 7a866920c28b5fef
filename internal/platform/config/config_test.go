package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "admin-pass")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.APIPort)
	assert.Equal(t, 24*time.Hour, cfg.AthleteTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "results_announcements", cfg.ResultsQueueName)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("ADMIN_TOKEN_TTL", "2h")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/meet.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.APIPort)
	assert.Equal(t, 2*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, "/tmp/meet.db", cfg.DSN())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "ADMIN_EMAIL")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBDriver: DriverPostgres, DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSslMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())

	cfg.DBURL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", cfg.DSN())
}

func TestLoadDatabaseSkipsAuthSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)

	t.Setenv("DB_DRIVER", "mysql")
	_, err = LoadDatabase()
	assert.Error(t, err)
}
