// Package config reads bookingsync settings out of viper.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentstation/bookingsync/pkg/constants"
	"github.com/agentstation/bookingsync/pkg/store/gormstore"
)

// Keys understood by the CLI. Environment variables use the upper-cased key
// with dots replaced by underscores, e.g. DATABASE_DSN.
const (
	KeyDatabaseDriver         = "database.driver"
	KeyDatabaseDSN            = "database.dsn"
	KeyTimezone               = "timezone"
	KeyDefaultSource          = "default_source"
	KeyActor                  = "actor"
	KeyAutoApplyCosmeticNames = "policy.auto_apply_cosmetic_names"
)

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyTimezone, constants.DefaultTimezone)
	v.SetDefault(KeyDefaultSource, constants.DefaultSource)
	v.SetDefault(KeyAutoApplyCosmeticNames, true)
}

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(v *viper.Viper, key string) string {
	viperValue := v.GetString(key)
	if viperValue != "" {
		return viperValue
	}
	return os.Getenv(strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key)))
}

// Database builds the store configuration. The DB_* variables are read
// first; database.driver and database.dsn from a config file or the
// DATABASE_* variables override them.
func Database(v *viper.Viper) gormstore.Config {
	cfg := gormstore.ConfigFromEnv()
	if driver := strings.TrimSpace(GetString(v, KeyDatabaseDriver)); driver != "" {
		cfg.Driver = strings.ToLower(driver)
	}
	if dsn := strings.TrimSpace(GetString(v, KeyDatabaseDSN)); dsn != "" {
		cfg.DSN = dsn
	}
	return cfg
}

// Actor returns the configured acting user, falling back to $USER.
func Actor(v *viper.Viper) string {
	if actor := strings.TrimSpace(GetString(v, KeyActor)); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}
