// Package database opens PostgreSQL handles for the outcome store and applies
// schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/domain"
)

// DB wraps a database/sql handle. With the pgx driver the handle is backed by a
// pgxpool.Pool; with the postgres driver it uses lib/pq.
type DB struct {
	SQL    *sql.DB
	Pool   *pgxpool.Pool
	driver string
	log    *logrus.Logger
}

// NewConnection opens and pings a connection pool for cfg.DatabaseURL.
func NewConnection(ctx context.Context, cfg domain.StorageConfig, logger *logrus.Logger) (*DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required for driver %s", cfg.Driver)
	}

	db := &DB{driver: cfg.Driver, log: logger}
	switch cfg.Driver {
	case domain.DriverPgx:
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing database config: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolConfig.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			poolConfig.MinConns = int32(min(cfg.MaxIdleConns, int(poolConfig.MaxConns)))
		}
		if cfg.ConnMaxLifetime > 0 {
			poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("creating connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		db.Pool = pool
		db.SQL = stdlib.OpenDBFromPool(pool)

	case domain.DriverPostgres:
		sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		db.SQL = sqlDB

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logger.WithFields(logrus.Fields{
		"driver":         cfg.Driver,
		"host":           redactedHost(cfg.DatabaseURL),
		"max_open_conns": cfg.MaxOpenConns,
	}).Info("Database connection pool established")

	return db, nil
}

// Close closes the database/sql handle and, for pgx, the underlying pool.
func (db *DB) Close() error {
	err := db.SQL.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
	db.log.Info("Database connection pool closed")
	return err
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// Stats returns connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.SQL.Stats()
}

// Driver is the configured driver name.
func (db *DB) Driver() string {
	return db.driver
}

func redactedHost(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
