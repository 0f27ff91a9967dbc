package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"frameworks/herald/pkg/logging"
)

// PostgresConn represents a PostgreSQL database connection
type PostgresConn = *sql.DB

// ErrNoRows is returned when a query returns no rows
var ErrNoRows = sql.ErrNoRows

// Config holds database configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns the pooled configuration used by request handlers.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ScopedConfig returns a configuration for a short-lived handle that owns a
// single connection and keeps nothing idle once closed.
func ScopedConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    1,
		MaxIdleConns:    0,
		ConnMaxLifetime: time.Minute,
	}
}

// Connect opens a pool with the given configuration and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger logging.Logger) (PostgresConn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if logger != nil {
		logger.WithFields(logging.Fields{
			"max_open_conns":    cfg.MaxOpenConns,
			"max_idle_conns":    cfg.MaxIdleConns,
			"conn_max_lifetime": cfg.ConnMaxLifetime,
		}).Debug("Database connected")
	}

	return db, nil
}

// MustConnect is like Connect but exits the process on error
func MustConnect(cfg Config, logger logging.Logger) PostgresConn {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := Connect(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	return db
}

// Opener yields a database handle for one unit of work together with the
// function that releases it. Callers must invoke release on every path.
type Opener func(ctx context.Context) (db *sql.DB, release func(), err error)

// NewScopedOpener returns an Opener that connects with ScopedConfig on every
// call; release closes the handle so no connection outlives its unit of work.
func NewScopedOpener(url string) Opener {
	return func(ctx context.Context) (*sql.DB, func(), error) {
		db, err := Connect(ctx, ScopedConfig(url), nil)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}
}

// ClosingOpener wraps an existing handle and closes it on release.
func ClosingOpener(db *sql.DB) Opener {
	return func(context.Context) (*sql.DB, func(), error) {
		return db, func() { _ = db.Close() }, nil
	}
}

// SharedOpener hands out a long-lived pool; release is a no-op.
func SharedOpener(db *sql.DB) Opener {
	return func(context.Context) (*sql.DB, func(), error) {
		return db, func() {}, nil
	}
}
