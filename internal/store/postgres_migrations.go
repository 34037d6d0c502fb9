package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// PostgresMigrations holds the Postgres schema history for bun/migrate.
// Each migration lives in its own <timestamp>_<name>.go file; bun derives the
// migration name from that file name.
var PostgresMigrations = migrate.NewMigrations()

// MigratePostgres brings the schema up to date under the migrator's lock.
func MigratePostgres(ctx context.Context, db *bun.DB) error {
	m := migrate.NewMigrator(db, PostgresMigrations)
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer func() { _ = m.Unlock(ctx) }()

	group, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		log.Info().Msg("postgres schema up to date")
		return nil
	}
	log.Info().Str("group", group.String()).Msg("postgres migrated")
	return nil
}
