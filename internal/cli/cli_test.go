package cli

import (
	"path/filepath"
	"testing"

	"github.com/roach88/argosync/internal/config"
)

// testConfig returns a config for a fresh SQLite store in a temp dir with the
// built-in types.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:            config.StoreSQL,
		DBDriver:         "sqlite3",
		DBDSN:            filepath.Join(t.TempDir(), "argo.db"),
		Langcode:         "en-US",
		ServicePrincipal: "argo",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

func badgerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	cfg.Store = config.StoreBadger
	cfg.BadgerDir = t.TempDir()
	return cfg
}
