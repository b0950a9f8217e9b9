package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/pkg/store/gormstore"
)

// isolateEnv clears every variable LoadConfig reads and points $HOME at an
// empty directory so no real config file is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"DB_DRIVER", "DB_DSN", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"DATABASE_DRIVER", "DATABASE_DSN",
		"TIMEZONE", "DEFAULT_SOURCE", "ACTOR", "POLICY_AUTO_APPLY_COSMETIC_NAMES",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("USER", "shell-user")
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "Direct", cfg.DefaultSource)
	assert.True(t, cfg.AutoApplyCosmeticNames)
	assert.Equal(t, "shell-user", cfg.Actor)
	assert.Equal(t, gormstore.DriverMySQL, cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "stderr", cfg.LogOutput)
}

func TestLoadConfigFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file:bookings.db")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("ACTOR", "ops@example.com")
	t.Setenv("POLICY_AUTO_APPLY_COSMETIC_NAMES", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, gormstore.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:bookings.db", cfg.Database.DSN)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "ops@example.com", cfg.Actor)
	assert.False(t, cfg.AutoApplyCosmeticNames)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFromDBVariables(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "bookings")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "app:secret@tcp(db.internal:3306)/bookings?charset=utf8mb4&parseTime=true&loc=UTC", cfg.Database.DSN)
}

func TestLoadConfigFile(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "bookingsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`database:
  driver: sqlite
  dsn: "file:from-file.db"
timezone: Asia/Tokyo
default_source: owner
policy:
  auto_apply_cosmetic_names: false
log_format: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, gormstore.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:from-file.db", cfg.Database.DSN)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, "owner", cfg.DefaultSource)
	assert.False(t, cfg.AutoApplyCosmeticNames)
	assert.Equal(t, "json", cfg.LogFormat)

	t.Setenv("TIMEZONE", "America/Denver")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "America/Denver", cfg.Timezone)
}

func TestLoadConfigMissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestUpdateFromFlags(t *testing.T) {
	cfg := &Config{Format: "yaml", LogLevel: "warn", NoColor: true}

	cfg.UpdateFromFlags(true, false, false, "", "")
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg.UpdateFromFlags(false, true, false, "json", "error")
	assert.False(t, cfg.Verbose)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "error", cfg.LogLevel)
}
