// internal/httpserver/routes_game.go
//
// The action endpoint.
//
//   GET|POST /api/game?action=&user=&payload=[&key=]
//
// Parameters may come from the query string or a form body. A parameter that
// is repeated, or whose value is the literal "null", counts as absent.

package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/pokeguess/guesswho/internal/admin"
	"github.com/pokeguess/guesswho/internal/game"
)

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req := game.Request{
		Action:  game.Action(param(r, "action")),
		User:    param(r, "user"),
		Payload: param(r, "payload"),
	}

	out, err := s.run(r, req)
	s.metrics.ObserveAction(req.Action, err)

	logger := hlog.FromRequest(r)
	if err != nil {
		logger.Debug().Err(err).Str("action", string(req.Action)).Str("kind", game.Kind(err)).Msg("action rejected")
		w.WriteHeader(statusFor(err))
		_, _ = w.Write([]byte(s.fmt.Error(err)))
		return
	}
	_, _ = w.Write([]byte(s.fmt.Outcome(out)))
}

// run applies transport policy (admin guard, rate limit) before the engine.
func (s *Server) run(r *http.Request, req game.Request) (game.Outcome, error) {
	switch req.Action {
	case game.ActionReset:
		// Without configured credentials only the round clear stays open;
		// deleting a leaderboard entry always needs an admin.
		if !s.guard.Enabled() && req.Payload != "" {
			hlog.FromRequest(r).Warn().Str("payload", req.Payload).Msg("score delete refused: no admin credentials configured")
			return game.Outcome{}, game.ErrForbidden
		}
		sub, err := s.guard.Authorize(admin.BearerToken(r), param(r, "key"))
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("reset refused")
			return game.Outcome{}, game.ErrForbidden
		}
		if req.User == "" {
			req.User = sub
		}
	case game.ActionGuess:
		if req.User != "" && !s.limiter.Allow(req.User) {
			return game.Outcome{}, game.ErrRateLimited
		}
	}
	return s.engine.Handle(r.Context(), req)
}

// param returns a single trimmed value, or "" when absent, repeated or "null".
func param(r *http.Request, name string) string {
	vals := r.Form[name]
	if len(vals) != 1 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if v == "null" {
		return ""
	}
	return v
}

// statusFor maps errors onto HTTP status codes. Deterministic game errors are
// 200 because the body is the reply.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrRateLimited):
		return http.StatusTooManyRequests
	case game.Kind(err) == "internal":
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
