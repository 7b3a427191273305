package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetForTest clears key for the duration of the test and restores it after.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestParse_Defaults(t *testing.T) {
	for _, key := range []string{
		"ARGO_STORE", "ARGO_DB_DRIVER", "ARGO_DB_DSN", "ARGO_REDIS_ADDR",
		"ARGO_CANONICAL_LANGCODE", "ARGO_SERVICE_PRINCIPAL", "ARGO_TYPES_FILE",
		"ARGO_LOG_LEVEL", "ARGO_LOG_FORMAT",
	} {
		unsetForTest(t, key)
	}

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, StoreSQL, cfg.Store)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "argo.db", cfg.DBDSN)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "en-US", cfg.Langcode)
	assert.Equal(t, "argo", cfg.ServicePrincipal)
	assert.Equal(t, "types.cue", cfg.TypesFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParse_CanonicalizesLangcode(t *testing.T) {
	t.Setenv("ARGO_CANONICAL_LANGCODE", "pt-br")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", cfg.Langcode)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"store", "ARGO_STORE", "mongo"},
		{"driver", "ARGO_DB_DRIVER", "oracle"},
		{"langcode", "ARGO_CANONICAL_LANGCODE", "not a tag"},
		{"level", "ARGO_LOG_LEVEL", "loud"},
		{"format", "ARGO_LOG_FORMAT", "xml"},
		{"redis db", "ARGO_REDIS_DB", "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestParse_BadgerIgnoresDriver(t *testing.T) {
	t.Setenv("ARGO_STORE", StoreBadger)
	t.Setenv("ARGO_DB_DRIVER", "oracle")
	t.Setenv("ARGO_BADGER_DIR", "/tmp/argo")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/argo", cfg.BadgerDir)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetForTest(t, "ARGO_TYPES_FILE")
	unsetForTest(t, "ARGO_SERVICE_PRINCIPAL")

	path := filepath.Join(t.TempDir(), "argo.env")
	require.NoError(t, os.WriteFile(path, []byte("ARGO_TYPES_FILE=site.cue\nARGO_SERVICE_PRINCIPAL=translator\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "site.cue", cfg.TypesFile)
	assert.Equal(t, "translator", cfg.ServicePrincipal)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.LevelDebug, "json", &buf)
	logger.Debug("sync page computed", "type", "node")

	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), `"type":"node"`)

	buf.Reset()
	logger = NewLogger(slog.LevelWarn, "text", &buf)
	logger.Info("dropped")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
