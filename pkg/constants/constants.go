// Package constants provides shared constants used throughout the bookingsync codebase.
// This includes defaults for the reconciliation engine, storage and the CLI
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second

	// DBConnMaxLifetime is the default maximum lifetime of a pooled connection
	DBConnMaxLifetime = 300 * time.Second

	// DBConnMaxIdleTime is the default maximum idle time of a pooled connection
	DBConnMaxIdleTime = 60 * time.Second

	// DBSlowThreshold is the query duration gorm reports as slow
	DBSlowThreshold = time.Second
)

// FilePermissions is the default permission for created files (rw-r--r--)
const FilePermissions = 0644

// Database pool defaults, overridable through DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS.
const (
	DBMaxOpenConns = 50
	DBMaxIdleConns = 25
)

// Reconciliation defaults
const (
	// DefaultTimezone is the canonical zone all booking dates are expressed in
	DefaultTimezone = "UTC"

	// DefaultSource is assigned to rows that carry no source column value
	DefaultSource = "Direct"

	// NameDistanceRatio is the share of the longer name's length an edit
	// distance may reach and still count as a minor correction
	NameDistanceRatio = 0.2

	// MinNameDistance is the absolute edit distance always tolerated as minor
	MinNameDistance = 2
)

// Output format constants
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Application metadata
const (
	AppName = "bookingsync"

	// ConfigFileName is looked up in $HOME and the working directory
	ConfigFileName = ".bookingsync"
)
