// Package config loads argosync settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/roach88/argosync/internal/translator"
)

// Store backends.
const (
	StoreSQL    = "sql"
	StoreBadger = "badger"
)

// Config holds every setting the CLI needs to assemble a Service.
type Config struct {
	Store     string `env:"ARGO_STORE" envDefault:"sql"`
	DBDriver  string `env:"ARGO_DB_DRIVER" envDefault:"sqlite3"`
	DBDSN     string `env:"ARGO_DB_DSN" envDefault:"argo.db"`
	BadgerDir string `env:"ARGO_BADGER_DIR"`

	// RedisAddr moves the deletion ledger to Redis when set.
	RedisAddr     string `env:"ARGO_REDIS_ADDR"`
	RedisPassword string `env:"ARGO_REDIS_PASSWORD"`
	RedisDB       int    `env:"ARGO_REDIS_DB" envDefault:"0"`

	Langcode         string `env:"ARGO_CANONICAL_LANGCODE" envDefault:"en-US"`
	ServicePrincipal string `env:"ARGO_SERVICE_PRINCIPAL" envDefault:"argo"`
	TypesFile        string `env:"ARGO_TYPES_FILE" envDefault:"types.cue"`

	LogLevel  string `env:"ARGO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ARGO_LOG_FORMAT" envDefault:"text"`
}

// Load reads envFile (if non-empty) into the process environment, then parses
// Config from it. A missing default .env is not an error; an explicit file
// that cannot be read is.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return Parse()
}

// Parse reads Config from the current environment and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and canonicalizes the langcode in place.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQL:
		switch c.DBDriver {
		case "sqlite3", "mysql", "postgres":
		default:
			return fmt.Errorf("ARGO_DB_DRIVER: unsupported driver %q", c.DBDriver)
		}
	case StoreBadger:
	default:
		return fmt.Errorf("ARGO_STORE: unsupported store %q", c.Store)
	}

	langcode, err := translator.CanonicalLangcode(c.Langcode)
	if err != nil {
		return fmt.Errorf("ARGO_CANONICAL_LANGCODE: %w", err)
	}
	c.Langcode = langcode

	if strings.TrimSpace(c.ServicePrincipal) == "" {
		return errors.New("ARGO_SERVICE_PRINCIPAL: must not be empty")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("ARGO_LOG_FORMAT: unsupported format %q", c.LogFormat)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("ARGO_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds a slog logger writing text or JSON to w.
func NewLogger(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
