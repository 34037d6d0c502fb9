package game

import (
	"errors"
)

// Request-level failures. Each is recovered at the request boundary and turned
// into a player-facing message; none of them leaves a partial store change.
var (
	ErrMissingUser        = errors.New("missing user")
	ErrMissingPayload     = errors.New("missing payload")
	ErrInvalidFilter      = errors.New("filter is neither a generation nor a type")
	ErrRoundAlreadyActive = errors.New("round already active")
	ErrNoActiveRound      = errors.New("no active round")
	ErrEmptyGuess         = errors.New("empty guess")
	ErrUnknownSpecies     = errors.New("unknown species")
	ErrDuplicateGuess     = errors.New("duplicate guess")
	ErrHintUnavailable    = errors.New("hint unavailable")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrUnrecognizedAction = errors.New("unrecognized action")

	// Raised by the transport before the engine runs.
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMissingUser, "missing_user"},
	{ErrMissingPayload, "missing_payload"},
	{ErrInvalidFilter, "invalid_filter"},
	{ErrRoundAlreadyActive, "round_already_active"},
	{ErrNoActiveRound, "no_active_round"},
	{ErrEmptyGuess, "empty_guess"},
	{ErrUnknownSpecies, "unknown_species"},
	{ErrDuplicateGuess, "duplicate_guess"},
	{ErrHintUnavailable, "hint_unavailable"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrUnrecognizedAction, "unrecognized_action"},
	{ErrForbidden, "forbidden"},
	{ErrRateLimited, "rate_limited"},
}

// Kind returns a stable label for err, "ok" for nil and "internal" for
// anything this package does not define.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// Transient reports whether the caller may retry the same request.
func Transient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// FilterError carries the rejected start filter so the reply can tell a
// numeric miss ("no such generation") from an unknown word.
type FilterError struct {
	Filter  string
	Numeric bool
}

func (e *FilterError) Error() string {
	if e.Numeric {
		return "generation " + e.Filter + " does not exist"
	}
	return "filter " + e.Filter + " is neither a generation nor a type"
}

func (e *FilterError) Unwrap() error { return ErrInvalidFilter }
