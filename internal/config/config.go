// internal/config/config.go
//
// Service configuration.
//
// Load order: Default(), then the YAML file when it exists, then environment
// variables, then Validate(). A .env file is applied to the environment by
// LoadDotEnv before Load runs, so .env values behave like real env vars.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Store    StoreConfig   `yaml:"store"`
	Hints    HintsConfig   `yaml:"hints"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Notify   NotifyConfig  `yaml:"notify"`
	Admin    AdminConfig   `yaml:"admin"`
	Limits   LimitsConfig  `yaml:"limits"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Command        string        `yaml:"command"` // chat prefix quoted in replies
}

type StoreConfig struct {
	Backend     string        `yaml:"backend"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
}

type HintsConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxLength int           `yaml:"max_length"`
}

type CatalogConfig struct {
	File string `yaml:"file"` // empty: embedded national dex
}

type NotifyConfig struct {
	NATSURL         string `yaml:"nats_url"`
	NATSSubject     string `yaml:"nats_subject"`
	RedisLastAction bool   `yaml:"redis_last_action"`
}

// AdminConfig guards reset. Both empty leaves reset open.
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	KeyHash   string `yaml:"key_hash"`
}

type LimitsConfig struct {
	GuessesPerSecond float64 `yaml:"guesses_per_second"` // 0 disables limiting
	GuessBurst       int     `yaml:"guess_burst"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// maxHintLength is the upper bound on hint replies.
const maxHintLength = 400

// Default returns a config that runs locally with no external services.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":5175",
			RequestTimeout: 10 * time.Second,
			Command:        "!guesswho",
		},
		Store: StoreConfig{
			Backend:     BackendSQLite,
			SQLitePath:  "./data/guesswho.db",
			RedisPrefix: "{guesswho}:",
			Timeout:     3 * time.Second,
		},
		Hints: HintsConfig{
			BaseURL:   "https://pokeapi.co",
			Timeout:   5 * time.Second,
			MaxLength: maxHintLength,
		},
		Notify: NotifyConfig{
			NATSSubject:     "guesswho.actions",
			RedisLastAction: true,
		},
		Limits: LimitsConfig{
			GuessesPerSecond: 1,
			GuessBurst:       3,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		LogLevel: "info",
	}
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load builds the effective configuration. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("POKEAPI_URL"); v != "" {
		c.Hints.BaseURL = v
	}
	if v := os.Getenv("CATALOG_FILE"); v != "" {
		c.Catalog.File = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Notify.NATSURL = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		c.Admin.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_KEY_HASH"); v != "" {
		c.Admin.KeyHash = v
	}
	if v := os.Getenv("GUESSES_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid GUESSES_PER_SECOND value: %w", err)
		}
		c.Limits.GuessesPerSecond = f
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks that the selected backend is fully configured.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Store.Timeout <= 0 || c.Hints.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout and hints.timeout must be positive"))
	}
	if c.Hints.MaxLength < 1 || c.Hints.MaxLength > maxHintLength {
		errs = append(errs, fmt.Errorf("hints.max_length must be between 1 and %d", maxHintLength))
	}
	if c.Limits.GuessesPerSecond < 0 {
		errs = append(errs, errors.New("limits.guesses_per_second must not be negative"))
	}
	if c.Limits.GuessesPerSecond > 0 && c.Limits.GuessBurst < 1 {
		errs = append(errs, errors.New("limits.guess_burst must be at least 1 when limiting is on"))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path must start with /"))
	}
	return errors.Join(errs...)
}
