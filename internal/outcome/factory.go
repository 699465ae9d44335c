package outcome

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/database"
	"github.com/anc-caregap-server/internal/domain"
)

// NewStore opens the store selected by cfg.Driver. For PostgreSQL drivers the
// migrations are applied first when cfg.AutoMigrate is set.
func NewStore(ctx context.Context, cfg domain.StorageConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case "", domain.DriverSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("Outcome store opened (SQLite)")
		return store, nil

	case domain.DriverPostgres, domain.DriverPgx:
		if cfg.AutoMigrate {
			if _, err := database.Migrate(ctx, cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
				return nil, err
			}
		}
		db, err := database.NewConnection(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(db.SQL)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &pooledStore{PostgresStore: store, db: db}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// pooledStore owns the connection pool behind a PostgresStore.
type pooledStore struct {
	*PostgresStore
	db *database.DB
}

func (p *pooledStore) Close() error {
	return p.db.Close()
}
