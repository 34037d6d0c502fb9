package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

// startPostgres runs a throwaway Postgres container, skipping when Docker is
// not reachable.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	ctx := context.Background()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("guesswho"),
		postgres.WithUsername("guesswho"),
		postgres.WithPassword("guesswho"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		if container != nil {
			_ = container.Terminate(ctx)
		}
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, MigratePostgres(ctx, db))
	require.NoError(t, MigratePostgres(ctx, db))

	runContract(t, func(t *testing.T) Store {
		resetPostgres(t, db)
		return NewPostgresStore(db)
	})
}

func resetPostgres(t *testing.T, db *bun.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`TRUNCATE guesswho_round_guesses, guesswho_rounds, guesswho_scores`)
	require.NoError(t, err)
}

func TestPostgresMigrationsRegistered(t *testing.T) {
	sorted := PostgresMigrations.Sorted()
	require.Len(t, sorted, 1)
	require.Equal(t, "20260101000000", sorted[0].Name)
	require.Equal(t, "init_schema", sorted[0].Comment)
	require.NotNil(t, sorted[0].Up)
	require.NotNil(t, sorted[0].Down)
}
