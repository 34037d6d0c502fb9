// internal/store/sqlite.go
//
// SQLite implementation of Store (mattn/go-sqlite3).
//
// Atomicity comes from the schema and from write transactions:
//   - rounds.slot is pinned to 1, so INSERT OR IGNORE is the create-if-absent CAS.
//   - round_guesses has (round_id, guess) as primary key, so INSERT OR IGNORE dedupes.
//   - FinishAndAward deletes the round and upserts the score in one transaction;
//     the delete only matches the caller's round id, so one finisher wins.
//
// The DSN must enable _txlock=immediate so write transactions take the
// database lock up front (see OpenSQLite).

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (and creates if missing) a SQLite database file.
//
//   - Ensures the parent directory exists for relative paths (e.g. ./data/guesswho.db).
//   - Busy timeout, WAL journaling, foreign keys and immediate write transactions
//     are set on the DSN so every pooled connection gets them.
func OpenSQLite(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// SQLite is a Store over a migrated SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLiteStore wraps db. The schema from assets/sql must already be applied.
func NewSQLiteStore(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Active(ctx context.Context) (*Round, error) {
	var r Round
	var started string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, secret, started_at FROM rounds WHERE slot = 1`,
	).Scan(&r.ID, &r.Secret, &started)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select round: %w", err)
	}
	r.StartedAt = parseTime(started)

	rows, err := s.db.QueryContext(ctx,
		`SELECT guess FROM round_guesses WHERE round_id = ? ORDER BY guess`, r.ID)
	if err != nil {
		return nil, fmt.Errorf("select guesses: %w", err)
	}
	defer rows.Close()
	r.Guesses = []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		r.Guesses = append(r.Guesses, g)
	}
	return &r, rows.Err()
}

func (s *SQLite) CreateIfAbsent(ctx context.Context, r Round) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO rounds (slot, id, secret, started_at) VALUES (1, ?, ?, ?)`,
		r.ID, r.Secret, formatTime(r.StartedAt))
	if err != nil {
		return false, fmt.Errorf("insert round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLite) AppendGuessIfNew(ctx context.Context, roundID, guess string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT id FROM rounds WHERE slot = 1`).Scan(&current)
	if err == sql.ErrNoRows || (err == nil && current != roundID) {
		return false, ErrNoActiveRound
	}
	if err != nil {
		return false, fmt.Errorf("select round: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO round_guesses (round_id, guess) VALUES (?, ?)`, roundID, guess)
	if err != nil {
		return false, fmt.Errorf("insert guess: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit guess: %w", err)
	}
	return n == 1, nil
}

func (s *SQLite) FinishAndAward(ctx context.Context, roundID, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM rounds WHERE slot = 1 AND id = ?`, roundID)
	if err != nil {
		return 0, fmt.Errorf("delete round: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrNoActiveRound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM round_guesses WHERE round_id = ?`, roundID); err != nil {
		return 0, fmt.Errorf("delete guesses: %w", err)
	}

	now := formatTime(time.Now())
	var score int
	err = tx.QueryRowContext(ctx, `
        INSERT INTO scores (user_id, score, created_at, updated_at)
        VALUES (?, 1, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET score = score + 1, updated_at = excluded.updated_at
        RETURNING score`, userID, now, now,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("upsert score: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit finish: %w", err)
	}
	return score, nil
}

func (s *SQLite) ClearRound(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM round_guesses`); err != nil {
		return fmt.Errorf("delete guesses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rounds`); err != nil {
		return fmt.Errorf("delete round: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) DeleteLeaderboardEntry(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete score: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLite) TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id, score
        FROM scores
        ORDER BY score DESC, rowid ASC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select scores: %w", err)
	}
	defer rows.Close()

	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Score); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// parseTime parses RFC3339 timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
