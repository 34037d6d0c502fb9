// internal/format/format.go
//
// Player-facing text for engine outcomes and errors.
//
// Everything here is pure: the same outcome always renders the same string.
// Messages embed the chat command prefix (e.g. "!guesswho") so they read as
// instructions in whatever bot relays them.

package format

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pokeguess/guesswho/internal/game"
)

// DefaultCommand is the chat prefix used when none is configured.
const DefaultCommand = "!guesswho"

// Formatter renders replies for one command prefix.
type Formatter struct {
	cmd string
}

// New returns a Formatter; an empty command means DefaultCommand.
func New(command string) *Formatter {
	if command = strings.TrimSpace(command); command == "" {
		command = DefaultCommand
	}
	return &Formatter{cmd: command}
}

func (f *Formatter) guessHelp() string { return fmt.Sprintf("'%s guess [Pokémon]'", f.cmd) }
func (f *Formatter) startHelp() string { return fmt.Sprintf("'%s start [Gen/type]'", f.cmd) }

// Outcome renders a successful action.
func (f *Formatter) Outcome(o game.Outcome) string {
	switch o.Kind {
	case game.OutcomeStatus:
		if o.Running {
			return "Game is running, try " + f.guessHelp()
		}
		return "No game is running, try " + f.startHelp()

	case game.OutcomeStarted:
		var reveal string
		if o.Filter == game.FilterGeneration {
			reveal = "Typing: " + f.Typing(o.Species.Types)
		} else {
			reveal = "Gen " + Roman(o.Generation.Number)
		}
		return fmt.Sprintf("Pokémon chosen, %s. use %s to place your guesses!", reveal, f.guessHelp())

	case game.OutcomeCorrect:
		return fmt.Sprintf("That's right! The Pokémon was %s! %s has guessed correctly %s",
			o.Species.Name, o.User, Plural(o.Score, "time", "times"))

	case game.OutcomeWrong:
		name := o.Species.Name
		if name == "" {
			name = titleCase(o.Guess)
		}
		return fmt.Sprintf("Nope, it's not %s, continue guessing!", name)

	case game.OutcomeHint:
		return o.Hint

	case game.OutcomeLeaderboard:
		if len(o.Leaders) == 0 {
			return "Nobody has guessed correctly yet"
		}
		lines := make([]string, len(o.Leaders))
		for i, e := range o.Leaders {
			lines[i] = fmt.Sprintf("#%d %s - %s", i+1, e.UserID, Plural(e.Score, "guess", "guesses"))
		}
		return "Top guessers: \n" + strings.Join(lines, "; \n")

	case game.OutcomeReset:
		switch {
		case o.DeletedUser == "":
			return "Round cleared"
		case o.Deleted:
			return fmt.Sprintf("Round cleared and deleted score from %s", o.DeletedUser)
		default:
			return fmt.Sprintf("Round cleared, %s had no score to delete", o.DeletedUser)
		}
	}
	return ""
}

// Error renders a rejected action.
func (f *Formatter) Error(err error) string {
	var fe *game.FilterError
	switch {
	case errors.As(err, &fe) && fe.Numeric:
		return "Number given isn't an existing generation"
	case errors.Is(err, game.ErrInvalidFilter):
		return "Filter not a type or a generation number"
	case errors.Is(err, game.ErrMissingUser):
		return "Missing user parameter"
	case errors.Is(err, game.ErrMissingPayload):
		return "Please choose either a generation or a type of Pokémon to play."
	case errors.Is(err, game.ErrRoundAlreadyActive):
		return "Game is already running, try " + f.guessHelp()
	case errors.Is(err, game.ErrNoActiveRound):
		return "Game is not running, try " + f.startHelp()
	case errors.Is(err, game.ErrEmptyGuess):
		return "You're guessing nothing? A bit pointless, no?"
	case errors.Is(err, game.ErrUnknownSpecies):
		return "Hmm.. I don't seem to recognize this Pokémon"
	case errors.Is(err, game.ErrDuplicateGuess):
		return "Someone already guessed that, try something else"
	case errors.Is(err, game.ErrHintUnavailable):
		return "Couldn't find a hint right now, try again later"
	case errors.Is(err, game.ErrStoreUnavailable):
		return "The game is temporarily unavailable, try again in a moment"
	case errors.Is(err, game.ErrUnrecognizedAction):
		return "Action not recognized"
	case errors.Is(err, game.ErrForbidden):
		return "You're not allowed to do that"
	case errors.Is(err, game.ErrRateLimited):
		return "Slow down! Too many guesses, try again in a moment"
	}
	return "Something went wrong"
}

// Typing renders types as title case joined by slashes ("Grass/Poison").
func (f *Formatter) Typing(types []string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = titleCase(t)
	}
	return strings.Join(parts, "/")
}

// titleCase builds a fresh Caser per call; Casers are not safe to share.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Plural renders "1 time", "2 times", "0 times".
func Plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Roman renders n (1..3999) as a Roman numeral; other values fall back to decimal.
func Roman(n int) string {
	if n <= 0 || n >= 4000 {
		return fmt.Sprint(n)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
