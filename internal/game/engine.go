// internal/game/engine.go
//
// Round engine: the state machine behind the single game endpoint.
//
// States are NoRound and RoundActive; the store's Active round decides which.
// Every mutation goes through a compare-and-set store operation keyed by the
// round id read at the start of the request, so two concurrent requests can
// never both succeed on the same round.
//
// Order of checks:
//   - start: user, running round, payload, generation id, type id.
//   - guess: user, running round, empty guess, correct, duplicate, unknown, wrong.
//
// Validation always precedes mutation, so a rejected action changes nothing.
package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pokeguess/guesswho/internal/catalog"
	"github.com/pokeguess/guesswho/internal/notify"
	"github.com/pokeguess/guesswho/internal/store"
)

const (
	defaultStoreTimeout = 3 * time.Second
	defaultHintTimeout  = 5 * time.Second
)

// Catalog is the reference data the engine consults. *catalog.Catalog satisfies it.
type Catalog interface {
	IsGenerationID(s string) bool
	IsTypeID(s string) bool
	Lookup(name string) (catalog.Species, bool)
	GenerationOf(dexNo int) (catalog.Generation, bool)
	RandomByGeneration(rng catalog.Rand, genID string) (catalog.Species, error)
	RandomByType(rng catalog.Rand, typeID string) (catalog.Species, error)
}

// HintProvider returns one redacted flavor text for a species.
type HintProvider interface {
	HintFor(ctx context.Context, species string) (string, error)
}

// Options wires an Engine. Store, Catalog and Hints are required.
type Options struct {
	Store    store.Store
	Catalog  Catalog
	Hints    HintProvider
	Notifier notify.Notifier // nil: notify.Log
	Rand     catalog.Rand    // nil: catalog.DefaultRand

	StoreTimeout time.Duration
	HintTimeout  time.Duration

	Now   func() time.Time
	NewID func() string
}

// Engine interprets requests against the store. Safe for concurrent use; it
// holds no round state of its own.
type Engine struct {
	store    store.Store
	catalog  Catalog
	hints    HintProvider
	notifier notify.Notifier
	rng      catalog.Rand

	storeTimeout time.Duration
	hintTimeout  time.Duration

	now   func() time.Time
	newID func() string
}

// New builds an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	e := &Engine{
		store:        opts.Store,
		catalog:      opts.Catalog,
		hints:        opts.Hints,
		notifier:     opts.Notifier,
		rng:          opts.Rand,
		storeTimeout: opts.StoreTimeout,
		hintTimeout:  opts.HintTimeout,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	if e.notifier == nil {
		e.notifier = notify.Log{}
	}
	if e.rng == nil {
		e.rng = catalog.DefaultRand
	}
	if e.storeTimeout <= 0 {
		e.storeTimeout = defaultStoreTimeout
	}
	if e.hintTimeout <= 0 {
		e.hintTimeout = defaultHintTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Handle runs one action. A nil error means the returned Outcome describes what happened.
func (e *Engine) Handle(ctx context.Context, req Request) (Outcome, error) {
	req.User = strings.TrimSpace(req.User)
	req.Payload = strings.TrimSpace(req.Payload)

	switch req.Action {
	case ActionNone:
		return e.status(ctx)
	case ActionStart:
		return e.start(ctx, req)
	case ActionGuess:
		return e.guess(ctx, req)
	case ActionHint:
		return e.hint(ctx)
	case ActionLeaderboard:
		return e.leaderboard(ctx)
	case ActionReset:
		return e.reset(ctx, req)
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnrecognizedAction, string(req.Action))
	}
}

func (e *Engine) status(ctx context.Context) (Outcome, error) {
	r, err := e.active(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeStatus, Running: r != nil}, nil
}

func (e *Engine) start(ctx context.Context, req Request) (Outcome, error) {
	if req.User == "" {
		return Outcome{}, ErrMissingUser
	}
	r, err := e.active(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if r != nil {
		return Outcome{}, ErrRoundAlreadyActive
	}
	if req.Payload == "" {
		return Outcome{}, ErrMissingPayload
	}

	out := Outcome{Kind: OutcomeStarted, User: req.User, FilterValue: req.Payload}
	switch {
	case e.catalog.IsGenerationID(req.Payload):
		out.Filter = FilterGeneration
		out.Species, err = e.catalog.RandomByGeneration(e.rng, req.Payload)
	case e.catalog.IsTypeID(req.Payload):
		out.Filter = FilterType
		out.Species, err = e.catalog.RandomByType(e.rng, req.Payload)
	default:
		_, numErr := strconv.Atoi(req.Payload)
		return Outcome{}, &FilterError{Filter: req.Payload, Numeric: numErr == nil}
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	out.Generation, _ = e.catalog.GenerationOf(out.Species.DexNo)

	round := store.Round{ID: e.newID(), Secret: out.Species.Name, StartedAt: e.now().UTC()}
	created, err := withTimeout(ctx, e.storeTimeout, func(ctx context.Context) (bool, error) {
		return e.store.CreateIfAbsent(ctx, round)
	})
	if err != nil {
		return Outcome{}, storeErr(err)
	}
	if !created {
		return Outcome{}, ErrRoundAlreadyActive
	}

	log.Debug().Str("action", "start").Str("user", req.User).Str("round", round.ID).Msg("round started")
	e.publish(ctx, ActionStart, req.User, notify.StartPayload{Chosen: req.Payload, Generated: revealed(out)})
	return out, nil
}

func (e *Engine) guess(ctx context.Context, req Request) (Outcome, error) {
	if req.User == "" {
		return Outcome{}, ErrMissingUser
	}
	r, err := e.active(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if r == nil {
		return Outcome{}, ErrNoActiveRound
	}
	guess := catalog.Normalize(req.Payload)
	if guess == "" {
		return Outcome{}, ErrEmptyGuess
	}

	if guess == catalog.Normalize(r.Secret) {
		score, err := withTimeout(ctx, e.storeTimeout, func(ctx context.Context) (int, error) {
			return e.store.FinishAndAward(ctx, r.ID, req.User)
		})
		if err != nil {
			return Outcome{}, storeErr(err)
		}
		log.Debug().Str("action", "guess").Str("user", req.User).Str("round", r.ID).Int("score", score).Msg("round won")
		e.publish(ctx, ActionGuess, req.User, notify.GuessPayload{Guess: req.Payload, Success: true})

		secret, ok := e.catalog.Lookup(r.Secret)
		if !ok {
			secret = catalog.Species{Name: r.Secret}
		}
		return Outcome{Kind: OutcomeCorrect, Species: secret, User: req.User, Guess: req.Payload, Score: score}, nil
	}

	if r.HasGuess(guess) {
		return Outcome{}, ErrDuplicateGuess
	}
	species, ok := e.catalog.Lookup(req.Payload)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownSpecies, req.Payload)
	}

	added, err := withTimeout(ctx, e.storeTimeout, func(ctx context.Context) (bool, error) {
		return e.store.AppendGuessIfNew(ctx, r.ID, guess)
	})
	if err != nil {
		return Outcome{}, storeErr(err)
	}
	if !added {
		return Outcome{}, ErrDuplicateGuess
	}
	log.Debug().Str("action", "guess").Str("user", req.User).Str("round", r.ID).Str("guess", guess).Msg("wrong guess")
	e.publish(ctx, ActionGuess, req.User, notify.GuessPayload{Guess: req.Payload, Success: false})
	return Outcome{Kind: OutcomeWrong, Species: species, User: req.User, Guess: req.Payload}, nil
}

func (e *Engine) hint(ctx context.Context) (Outcome, error) {
	r, err := e.active(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if r == nil {
		return Outcome{}, ErrNoActiveRound
	}
	text, err := withTimeout(ctx, e.hintTimeout, func(ctx context.Context) (string, error) {
		return e.hints.HintFor(ctx, r.Secret)
	})
	if err != nil {
		log.Warn().Err(err).Str("round", r.ID).Msg("hint fetch failed")
		return Outcome{}, fmt.Errorf("%w: %v", ErrHintUnavailable, err)
	}
	return Outcome{Kind: OutcomeHint, Hint: text}, nil
}

func (e *Engine) leaderboard(ctx context.Context) (Outcome, error) {
	top, err := withTimeout(ctx, e.storeTimeout, func(ctx context.Context) ([]store.LeaderboardEntry, error) {
		return e.store.TopScores(ctx, LeaderboardSize)
	})
	if err != nil {
		return Outcome{}, storeErr(err)
	}
	return Outcome{Kind: OutcomeLeaderboard, Leaders: top}, nil
}

// reset clears the round and, when the payload names a user, that user's
// leaderboard entry. Authorization is the transport's job.
func (e *Engine) reset(ctx context.Context, req Request) (Outcome, error) {
	if _, err := withTimeout(ctx, e.storeTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.store.ClearRound(ctx)
	}); err != nil {
		return Outcome{}, storeErr(err)
	}

	out := Outcome{Kind: OutcomeReset, User: req.User, DeletedUser: req.Payload}
	if req.Payload != "" {
		deleted, err := withTimeout(ctx, e.storeTimeout, func(ctx context.Context) (bool, error) {
			return e.store.DeleteLeaderboardEntry(ctx, req.Payload)
		})
		if err != nil {
			return Outcome{}, storeErr(err)
		}
		out.Deleted = deleted
	}

	log.Info().Str("action", "reset").Str("user", req.User).Str("deleted", req.Payload).Msg("game reset")
	e.publish(ctx, ActionReset, req.User, notify.ResetPayload{Deleted: req.Payload})
	return out, nil
}

func (e *Engine) active(ctx context.Context) (*store.Round, error) {
	r, err := withTimeout(ctx, e.storeTimeout, e.store.Active)
	if err != nil {
		return nil, storeErr(err)
	}
	return r, nil
}

func (e *Engine) publish(ctx context.Context, action Action, user string, payload any) {
	ev := notify.Event{Action: string(action), Payload: payload, User: user, At: e.now().UTC()}
	// Detached so a request that is about to finish cannot cancel delivery.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.storeTimeout)
	defer cancel()
	if err := e.notifier.Notify(ctx, ev); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Msg("last action notify failed")
	}
}

// revealed is what a start discloses: the typing for a generation filter,
// the generation for a type filter.
func revealed(out Outcome) string {
	if out.Filter == FilterGeneration {
		return strings.Join(out.Species.Types, " ")
	}
	return out.Generation.ID
}

// storeErr maps a store failure onto the request-level error set. A round
// that vanished under a compare-and-set stays NoActiveRound; anything else is
// infrastructure.
func storeErr(err error) error {
	if errors.Is(err, store.ErrNoActiveRound) {
		return ErrNoActiveRound
	}
	log.Error().Err(err).Msg("store call failed")
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
