// internal/notify/notify.go
//
// "Last action" notifications.
//
// After each accepted mutation the engine emits an Event so overlays and bots
// can react without polling the game endpoint. Delivery is best effort: a
// failing sink is logged and never changes the reply a player sees.

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is the record published after start, guess and reset.
type Event struct {
	Action  string    `json:"action"`
	Payload any       `json:"payload"`
	User    string    `json:"user,omitempty"`
	At      time.Time `json:"at"`
}

// StartPayload: Chosen is the filter the player typed, Generated what it
// revealed (the typing for a generation filter, the generation for a type).
type StartPayload struct {
	Chosen    string `json:"chosen"`
	Generated string `json:"generated"`
}

type GuessPayload struct {
	Guess   string `json:"guess"`
	Success bool   `json:"success"`
}

type ResetPayload struct {
	Deleted string `json:"deleted,omitempty"`
}

// Notifier delivers events to one sink.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Encode renders ev as the JSON document every sink publishes.
func Encode(ev Event) ([]byte, error) {
	if ev.Payload == nil {
		ev.Payload = struct{}{}
	}
	return json.Marshal(ev)
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to the global logger; used when no broker is configured.
type Log struct{}

func (Log) Notify(_ context.Context, ev Event) error {
	log.Debug().
		Str("action", ev.Action).
		Str("user", ev.User).
		Interface("payload", ev.Payload).
		Time("at", ev.At).
		Msg("last action")
	return nil
}
