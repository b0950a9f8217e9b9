package gormstore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/logger"

	"github.com/agentstation/bookingsync/pkg/constants"
)

// Supported drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config describes how to open the database.
type Config struct {
	Driver string
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// LogLevel controls gorm's own statement logging.
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

// DefaultConfig returns pool settings suited to a single import process.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverMySQL,
		MaxOpenConns:    constants.DBMaxOpenConns,
		MaxIdleConns:    constants.DBMaxIdleConns,
		ConnMaxLifetime: constants.DBConnMaxLifetime,
		ConnMaxIdleTime: constants.DBConnMaxIdleTime,
		LogLevel:        logger.Error,
		SlowThreshold:   constants.DBSlowThreshold,
	}
}

// ConfigFromEnv overlays DB_* environment variables on DefaultConfig.
//
//	DB_DRIVER                       mysql (default) or sqlite
//	DB_DSN                          full DSN, wins over the parts below
//	DB_USER, DB_PASSWORD            MySQL credentials
//	DB_HOST, DB_PORT, DB_NAME       MySQL address; a /cloudsql/ host uses a unix socket
//	DB_MAX_OPEN_CONNS               default 50
//	DB_MAX_IDLE_CONNS               default 25
//	DB_CONN_MAX_LIFETIME_SECONDS    default 300
//	DB_CONN_MAX_IDLE_TIME_SECONDS   default 60
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if driver := strings.TrimSpace(os.Getenv("DB_DRIVER")); driver != "" {
		cfg.Driver = strings.ToLower(driver)
	}
	cfg.DSN = strings.TrimSpace(os.Getenv("DB_DSN"))
	if cfg.DSN == "" && cfg.Driver == DriverMySQL {
		cfg.DSN = MySQLDSNFromEnv()
	}
	cfg.MaxOpenConns = intFromEnv("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.MaxIdleConns = intFromEnv("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.ConnMaxLifetime = time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", int(cfg.ConnMaxLifetime/time.Second))) * time.Second
	cfg.ConnMaxIdleTime = time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", int(cfg.ConnMaxIdleTime/time.Second))) * time.Second
	return cfg
}

// MySQLDSNFromEnv assembles a MySQL DSN from DB_USER, DB_PASSWORD, DB_HOST,
// DB_PORT and DB_NAME. It returns "" when DB_HOST is unset.
func MySQLDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	if host == "" {
		return ""
	}

	network, address := "tcp", fmt.Sprintf("%s:%s", host, envOr("DB_PORT", "3306"))
	if strings.HasPrefix(host, "/cloudsql/") {
		network, address = "unix", host
	}

	return fmt.Sprintf("%s:%s@%s(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		network,
		address,
		os.Getenv("DB_NAME"),
	)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
