package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/anc-caregap-server/internal/domain"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("anc"),
		postgres.WithUsername("anc"),
		postgres.WithPassword("anc"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	url, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func TestConnectionAndMigrations(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()
	logger := logrus.New()

	version, err := Migrate(ctx, url, "../../migrations", logger)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	version, err = Migrate(ctx, url, "../../migrations", logger)
	require.NoError(t, err, "second run is a no-op")
	assert.Equal(t, uint(1), version)

	for _, driver := range []string{domain.DriverPgx, domain.DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			db, err := NewConnection(ctx, domain.StorageConfig{
				Driver:          driver,
				DatabaseURL:     url,
				MaxOpenConns:    5,
				MaxIdleConns:    2,
				ConnMaxLifetime: time.Minute,
			}, logger)
			require.NoError(t, err)
			defer db.Close()

			assert.Equal(t, driver, db.Driver())
			require.NoError(t, db.Health(ctx))

			var exists bool
			err = db.SQL.QueryRowContext(ctx,
				"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'outcomes')").Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}
