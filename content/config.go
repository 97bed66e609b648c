package content

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds the connection and transaction settings of the store.
type Config struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `yaml:"driver"`

	// DSN is handed to database/sql as-is. SQLite write transactions take the
	// database write lock up front whether or not _txlock=immediate is set;
	// _busy_timeout decides how long a writer waits for it.
	DSN string `yaml:"dsn"`

	// MaxOpenConns bounds the connection pool. Zero leaves database/sql's default.
	MaxOpenConns int `yaml:"max_open_conns"`

	// Isolation applies to Postgres write transactions: "read_committed"
	// (default), "repeatable_read" or "serializable". SQLite ignores it.
	Isolation string `yaml:"isolation"`

	// Retry bounds retries of transactions failing with transient errors.
	Retry RetryPolicy `yaml:"retry"`
}

// DefaultConfig returns a Config backed by a local SQLite file.
func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          "file:scripts.db?_busy_timeout=5000&_txlock=immediate",
		MaxOpenConns: 8,
		Isolation:    "read_committed",
		Retry:        DefaultRetryPolicy(),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return &ConfigError{Field: "Driver", Message: "must be sqlite3 or postgres"}
	}
	if c.DSN == "" {
		return &ConfigError{Field: "DSN", Message: "must not be empty"}
	}
	if c.MaxOpenConns < 0 {
		return &ConfigError{Field: "MaxOpenConns", Message: "must be non-negative"}
	}
	if _, ok := isolationLevels[c.Isolation]; !ok {
		return &ConfigError{Field: "Isolation", Message: "must be read_committed, repeatable_read or serializable"}
	}
	if c.Retry.Attempts < 1 {
		return &ConfigError{Field: "Retry.Attempts", Message: "must be at least 1"}
	}
	if c.Retry.BaseDelay < 0 {
		return &ConfigError{Field: "Retry.BaseDelay", Message: "must be non-negative"}
	}
	return nil
}

var isolationLevels = map[string]sql.IsolationLevel{
	"":                sql.LevelReadCommitted,
	"read_committed":  sql.LevelReadCommitted,
	"repeatable_read": sql.LevelRepeatableRead,
	"serializable":    sql.LevelSerializable,
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "store config error in field " + e.Field + ": " + e.Message
}

// Open connects to the configured database and returns a bun handle using the
// matching dialect.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	var db *bun.DB
	switch cfg.Driver {
	case DriverPostgres:
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
