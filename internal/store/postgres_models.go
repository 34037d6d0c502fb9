package store

import (
	"time"

	"github.com/uptrace/bun"
)

// pgRound is the single active round; Slot is always 1.
type pgRound struct {
	bun.BaseModel `bun:"table:guesswho_rounds"`

	Slot      int       `bun:"slot,pk"`
	ID        string    `bun:"id,notnull,unique"`
	Secret    string    `bun:"secret,notnull"`
	StartedAt time.Time `bun:"started_at,notnull"`
}

type pgGuess struct {
	bun.BaseModel `bun:"table:guesswho_round_guesses"`

	RoundID string `bun:"round_id,pk"`
	Guess   string `bun:"guess,pk"`
}

type pgScore struct {
	bun.BaseModel `bun:"table:guesswho_scores"`

	UserID    string    `bun:"user_id,pk"`
	Score     int       `bun:"score,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
