package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/pokeguess/guesswho/internal/admin"
	"github.com/pokeguess/guesswho/internal/catalog"
	"github.com/pokeguess/guesswho/internal/config"
	"github.com/pokeguess/guesswho/internal/format"
	"github.com/pokeguess/guesswho/internal/game"
	"github.com/pokeguess/guesswho/internal/hints"
	"github.com/pokeguess/guesswho/internal/httpserver"
	"github.com/pokeguess/guesswho/internal/metrics"
)

func main() {
	app := &cli.App{
		Name:  "guesswho",
		Usage: "guess-the-Pokémon game endpoint for chat bots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the YAML configuration file"},
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "path to a .env file (ignored when missing)"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations for the configured backend",
				Action: migrateCmd,
			},
			adminCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("guesswho exited")
	}
}

// loadConfig applies .env, reads the config file and sets the log level.
func loadConfig(c *cli.Context) (config.Config, error) {
	if err := config.LoadDotEnv(c.String("env")); err != nil {
		return config.Config{}, fmt.Errorf("load %s: %w", c.String("env"), err)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	engine := game.New(game.Options{
		Store:        b.store,
		Catalog:      cat,
		Hints:        m.InstrumentHints(hints.New(cfg.Hints.BaseURL, hints.WithMaxLength(cfg.Hints.MaxLength))),
		Notifier:     b.notifier,
		StoreTimeout: cfg.Store.Timeout,
		HintTimeout:  cfg.Hints.Timeout,
	})

	guard := admin.NewGuard(cfg.Admin.JWTSecret, cfg.Admin.KeyHash)
	if !guard.Enabled() {
		log.Warn().Msg("no admin credentials configured; reset is open to everyone")
	}

	srv := httpserver.New(httpserver.Options{
		Engine:           engine,
		Formatter:        format.New(cfg.Server.Command),
		Guard:            guard,
		Metrics:          m,
		MetricsPath:      cfg.Metrics.Path,
		RequestTimeout:   cfg.Server.RequestTimeout,
		GuessesPerSecond: cfg.Limits.GuessesPerSecond,
		GuessBurst:       cfg.Limits.GuessBurst,
	})

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("backend", cfg.Store.Backend).
		Int("species", cat.Len()).
		Msg("starting guesswho")
	return srv.Start(ctx, cfg.Server.Addr)
}

func migrateCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return migrateBackend(c.Context, cfg)
}
