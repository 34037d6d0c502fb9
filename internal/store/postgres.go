// internal/store/postgres.go
//
// Postgres implementation of Store on top of uptrace/bun.
//
//   - CreateIfAbsent is an INSERT ... ON CONFLICT (slot) DO NOTHING on a table
//     whose slot column only admits 1.
//   - AppendGuessIfNew locks the round row (SELECT ... FOR UPDATE) before the
//     conflict-ignoring insert, so it serializes with FinishAndAward.
//   - FinishAndAward deletes the caller's round and upserts the score in one transaction.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenPostgres connects bun to dsn through pgdriver.
func OpenPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Postgres is a Store over a migrated Postgres database.
type Postgres struct {
	db *bun.DB
}

// NewPostgresStore wraps db. Run MigratePostgres first.
func NewPostgresStore(db *bun.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Active(ctx context.Context) (*Round, error) {
	row := new(pgRound)
	err := p.db.NewSelect().Model(row).Where("slot = 1").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select round: %w", err)
	}
	guesses := []string{}
	err = p.db.NewSelect().
		Model((*pgGuess)(nil)).
		Column("guess").
		Where("round_id = ?", row.ID).
		Order("guess ASC").
		Scan(ctx, &guesses)
	if err != nil {
		return nil, fmt.Errorf("select guesses: %w", err)
	}
	return &Round{ID: row.ID, Secret: row.Secret, Guesses: guesses, StartedAt: row.StartedAt.UTC()}, nil
}

func (p *Postgres) CreateIfAbsent(ctx context.Context, r Round) (bool, error) {
	res, err := p.db.NewInsert().
		Model(&pgRound{Slot: 1, ID: r.ID, Secret: r.Secret, StartedAt: r.StartedAt.UTC()}).
		On("CONFLICT (slot) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) AppendGuessIfNew(ctx context.Context, roundID, guess string) (bool, error) {
	var added bool
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockRound(ctx, tx, roundID); err != nil {
			return err
		}
		res, err := tx.NewInsert().
			Model(&pgGuess{RoundID: roundID, Guess: guess}).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert guess: %w", err)
		}
		n, err := res.RowsAffected()
		added = n == 1
		return err
	})
	return added, err
}

func (p *Postgres) FinishAndAward(ctx context.Context, roundID, userID string) (int, error) {
	var score int
	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*pgRound)(nil)).
			Where("slot = 1").
			Where("id = ?", roundID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete round: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNoActiveRound
		}
		if _, err := tx.NewDelete().Model((*pgGuess)(nil)).Where("round_id = ?", roundID).Exec(ctx); err != nil {
			return fmt.Errorf("delete guesses: %w", err)
		}
		err = tx.NewRaw(`
			INSERT INTO guesswho_scores (user_id, score, created_at, updated_at)
			VALUES (?, 1, ?, ?)
			ON CONFLICT (user_id) DO UPDATE
			SET score = guesswho_scores.score + 1, updated_at = EXCLUDED.updated_at
			RETURNING score`, userID, time.Now().UTC(), time.Now().UTC()).
			Scan(ctx, &score)
		if err != nil {
			return fmt.Errorf("upsert score: %w", err)
		}
		return nil
	})
	return score, err
}

func (p *Postgres) ClearRound(ctx context.Context) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*pgGuess)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("delete guesses: %w", err)
		}
		if _, err := tx.NewDelete().Model((*pgRound)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("delete round: %w", err)
		}
		return nil
	})
}

func (p *Postgres) DeleteLeaderboardEntry(ctx context.Context, userID string) (bool, error) {
	res, err := p.db.NewDelete().Model((*pgScore)(nil)).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete score: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *Postgres) TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var rows []pgScore
	q := p.db.NewSelect().Model(&rows).Order("score DESC", "created_at ASC", "user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select scores: %w", err)
	}
	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = LeaderboardEntry{UserID: r.UserID, Score: r.Score}
	}
	return out, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// lockRound takes a row lock on the active round and checks it is roundID.
func lockRound(ctx context.Context, tx bun.Tx, roundID string) error {
	row := new(pgRound)
	err := tx.NewSelect().Model(row).Where("slot = 1").For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoActiveRound
	}
	if err != nil {
		return fmt.Errorf("lock round: %w", err)
	}
	if row.ID != roundID {
		return ErrNoActiveRound
	}
	return nil
}
