// internal/store/store.go
//
// Persistence contract for the guessing game.
//
// A Store owns two pieces of state:
//   - at most one active Round (the hidden species plus wrong guesses so far);
//   - the Leaderboard, a per-user tally of correct guesses.
//
// Every mutation is atomic with respect to concurrent callers. Implementations
// use compare-and-set or transactions at the storage layer; callers never
// read-then-write. Backends: memory (this package), SQLite, Postgres (bun), Redis.

package store

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrNoActiveRound is returned by round mutations when no round exists or the
// active round is not the one the caller acted on.
var ErrNoActiveRound = errors.New("store: no active round")

// Round is the single in-progress game.
type Round struct {
	ID        string    // unique per round; used as a compare-and-set token
	Secret    string    // canonical species name
	Guesses   []string  // normalized wrong guesses, sorted
	StartedAt time.Time // UTC
}

// HasGuess reports whether the normalized guess was already recorded.
func (r *Round) HasGuess(guess string) bool {
	return slices.Contains(r.Guesses, guess)
}

// LeaderboardEntry is one user's cumulative correct-guess count.
type LeaderboardEntry struct {
	UserID string
	Score  int
}

// Store defines the persistence interface for rounds and scores.
type Store interface {
	// Active returns the current round, or nil when none exists.
	Active(ctx context.Context) (*Round, error)

	// CreateIfAbsent stores r as the active round. It returns false, without
	// changing anything, when a round already exists.
	CreateIfAbsent(ctx context.Context, r Round) (bool, error)

	// AppendGuessIfNew records a normalized guess against round roundID.
	// It returns false when the guess was already recorded and
	// ErrNoActiveRound when roundID is not the active round.
	AppendGuessIfNew(ctx context.Context, roundID, guess string) (bool, error)

	// FinishAndAward clears round roundID and increments userID's score
	// (creating it at 1) in one step, returning the new score. It returns
	// ErrNoActiveRound when roundID is not the active round; nothing is awarded then.
	FinishAndAward(ctx context.Context, roundID, userID string) (int, error)

	// ClearRound deletes the active round, if any.
	ClearRound(ctx context.Context) error

	// DeleteLeaderboardEntry removes userID from the leaderboard and reports
	// whether an entry existed.
	DeleteLeaderboardEntry(ctx context.Context, userID string) (bool, error)

	// TopScores returns up to limit entries by descending score; ties keep
	// the order in which users first scored.
	TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	// Close releases backend resources.
	Close() error
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out
}
