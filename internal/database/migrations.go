package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// Migrate brings the outcome schema up to the newest file in migrationsPath and
// returns the resulting schema version. A dirty schema is reported as an error
// and left for an operator. Cancelling ctx stops after the running migration.
func Migrate(ctx context.Context, databaseURL, migrationsPath string, logger *logrus.Logger) (uint, error) {
	m, err := migrate.New("file://"+migrationsPath, migrationURL(databaseURL))
	if err != nil {
		return 0, fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		err = nil
	case err != nil:
		return 0, fmt.Errorf("applying migrations: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, fmt.Errorf("migrations interrupted: %w", ctxErr)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}

	logger.WithFields(logrus.Fields{
		"version": version,
		"source":  migrationsPath,
		"host":    redactedHost(databaseURL),
	}).Info("Outcome schema is up to date")
	return version, nil
}

// migrationURL rewrites pgx-style URLs to the postgres scheme the migrate
// driver registers.
func migrationURL(databaseURL string) string {
	for _, prefix := range []string{"pgx://", "pgx5://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "postgres://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}
