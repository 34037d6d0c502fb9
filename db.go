// db.go
//
// Backend wiring for the guesswho server.
// Responsibilities:
//   - Open the configured Round Store (memory, SQLite, Postgres or Redis).
//   - Apply migrations for SQL backends (SQLite from assets/sql, Postgres via bun/migrate).
//   - Build the last-action notifier from Redis and/or NATS, falling back to logs.
//
// Every opened resource is registered on backends so Close releases them in
// reverse order.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/pokeguess/guesswho/assets"
	"github.com/pokeguess/guesswho/internal/config"
	"github.com/pokeguess/guesswho/internal/notify"
	"github.com/pokeguess/guesswho/internal/store"
)

type backends struct {
	store    store.Store
	notifier notify.Notifier
	closers  []func() error
}

func (b *backends) onClose(fn func() error) { b.closers = append(b.closers, fn) }

// Close releases resources in reverse order of acquisition.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// openBackends opens the store (migrating SQL schemas) and the notifier sinks.
func openBackends(ctx context.Context, cfg config.Config) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var rdb *redis.Client
	switch cfg.Store.Backend {
	case config.BackendMemory:
		b.store = store.NewMemoryStore()
		log.Warn().Msg("memory store: rounds and scores are lost on restart")

	case config.BackendSQLite:
		db, err := openSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		s := store.NewSQLiteStore(db)
		b.onClose(s.Close)
		b.store = s

	case config.BackendPostgres:
		db, err := openPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s := store.NewPostgresStore(db)
		b.onClose(s.Close)
		b.store = s

	case config.BackendRedis:
		rdb, err = store.OpenRedis(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		s := store.NewRedisStore(rdb, cfg.Store.RedisPrefix)
		b.onClose(s.Close)
		b.store = s

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	var sinks notify.Multi
	if cfg.Notify.RedisLastAction && cfg.Store.RedisURL != "" {
		if rdb == nil {
			rdb, err = store.OpenRedis(ctx, cfg.Store.RedisURL)
			if err != nil {
				return nil, err
			}
			b.onClose(rdb.Close)
		}
		sinks = append(sinks, notify.NewRedis(rdb, cfg.Store.RedisPrefix))
	}
	if cfg.Notify.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.Notify.NATSURL)
		if err != nil {
			return nil, err
		}
		n := notify.NewNATS(nc, cfg.Notify.NATSSubject)
		b.onClose(n.Close)
		sinks = append(sinks, n)
	}
	switch len(sinks) {
	case 0:
		b.notifier = notify.Log{}
	case 1:
		b.notifier = sinks[0]
	default:
		b.notifier = sinks
	}
	return b, nil
}

// migrateBackend applies migrations for SQL backends and exits.
func migrateBackend(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := openSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		return db.Close()
	case config.BackendPostgres:
		db, err := openPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		return db.Close()
	default:
		log.Info().Str("backend", cfg.Store.Backend).Msg("backend has no schema to migrate")
		return nil
	}
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := store.MigrateSQLite(ctx, db, assets.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	db, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.MigratePostgres(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return db, nil
}
