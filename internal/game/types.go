// internal/game/types.go
//
// Request and result types for the round engine.

package game

import (
	"github.com/pokeguess/guesswho/internal/catalog"
	"github.com/pokeguess/guesswho/internal/store"
)

// Action is the verb a player sends.
type Action string

const (
	ActionNone        Action = ""
	ActionStart       Action = "start"
	ActionGuess       Action = "guess"
	ActionHint        Action = "hint"
	ActionLeaderboard Action = "leaderboard"
	ActionReset       Action = "reset"
)

// LeaderboardSize is how many entries the leaderboard action returns.
const LeaderboardSize = 5

// Request is one inbound action. Empty strings mean "not supplied".
type Request struct {
	Action  Action
	User    string
	Payload string
}

// OutcomeKind tells the formatter which fields of an Outcome are set.
type OutcomeKind int

const (
	OutcomeStatus      OutcomeKind = iota // Running
	OutcomeStarted                        // Filter, Species, Generation
	OutcomeCorrect                        // Species (the secret), User, Score
	OutcomeWrong                          // Guess, Species (the guessed one)
	OutcomeHint                           // Hint
	OutcomeLeaderboard                    // Leaders
	OutcomeReset                          // DeletedUser, Deleted
)

// FilterKind is what a start payload resolved to.
type FilterKind int

const (
	FilterGeneration FilterKind = iota + 1
	FilterType
)

// Outcome is the structured result of a successful action.
type Outcome struct {
	Kind OutcomeKind

	Running bool

	Filter      FilterKind
	FilterValue string
	Species     catalog.Species
	Generation  catalog.Generation

	User  string
	Guess string
	Score int

	Hint string

	Leaders []store.LeaderboardEntry

	DeletedUser string
	Deleted     bool
}
