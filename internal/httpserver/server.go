// internal/httpserver/server.go
//
// HTTP server wiring for the guessing game.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, timeouts, access logs).
//   - Public endpoints: "/", "/health", optional "/metrics".
//   - The single action endpoint, GET or POST /api/game, answering text/plain.
//
// Notes:
//   - Chat bots print the body verbatim, so deterministic game errors answer 200
//     and only transient or policy failures use other status codes.
//   - reset is checked against the admin guard before the engine runs; guess is
//     rate limited per user.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/pokeguess/guesswho/internal/admin"
	"github.com/pokeguess/guesswho/internal/format"
	"github.com/pokeguess/guesswho/internal/game"
	"github.com/pokeguess/guesswho/internal/metrics"
)

// Engine runs one game action. *game.Engine satisfies it.
type Engine interface {
	Handle(ctx context.Context, req game.Request) (game.Outcome, error)
}

// Options wires a Server. Engine and Formatter are required.
type Options struct {
	Engine    Engine
	Formatter *format.Formatter
	Guard     *admin.Guard     // nil or disabled: reset is open
	Metrics   *metrics.Metrics // nil: no /metrics, no counters

	MetricsPath      string
	RequestTimeout   time.Duration
	GuessesPerSecond float64 // <= 0 disables limiting
	GuessBurst       int
}

// Server bundles the router and the collaborators its handlers use.
type Server struct {
	r       *chi.Mux
	engine  Engine
	fmt     *format.Formatter
	guard   *admin.Guard
	metrics *metrics.Metrics
	limiter *userLimiter
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	s := &Server{
		r:       chi.NewRouter(),
		engine:  opts.Engine,
		fmt:     opts.Formatter,
		guard:   opts.Guard,
		metrics: opts.Metrics,
		limiter: newUserLimiter(opts.GuessesPerSecond, opts.GuessBurst),
	}
	if s.fmt == nil {
		s.fmt = format.New("")
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                    // add X-Request-ID
	s.r.Use(chimw.RealIP)                       // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))        // request-scoped logger
	s.r.Use(requestIDLogger)                    // tag it with the chi request id
	s.r.Use(hlog.AccessHandler(accessLog))      // one line per request
	s.r.Use(chimw.Recoverer)                    // recover from panics
	s.r.Use(chimw.Timeout(opts.RequestTimeout)) // bound handler time
	s.r.Use(textContentType)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("guesswho: GET|POST /api/game?action=start|guess|hint|leaderboard|reset&user=&payload=\n"))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		s.r.Handle(opts.MetricsPath, s.metrics.Handler())
	}

	s.r.Get("/api/game", s.handleGame)
	s.r.Post("/api/game", s.handleGame)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
	})
	return s
}

// Handler exposes the router (useful for tests).
func (s *Server) Handler() http.Handler { return s.r }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ----------------------------- middleware ----------------------------------

// textContentType sets the plain-text Content-Type every reply uses.
func textContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			l := zerolog.Ctx(r.Context())
			l.UpdateContext(func(c zerolog.Context) zerolog.Context { return c.Str("req_id", id) })
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}
