package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	for _, key := range []string{"DB_DRIVER", "CORS_ORIGINS", "HTTP_PORT", "LOG_LEVEL", "VALKEY_ADDR", "MAX_MESSAGE_LENGTH"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "marketchat", cfg.AppName)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 5000, cfg.MaxMessageLength)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.IdentityCacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.ValkeyAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_DB", "chat")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Contains(t, cfg.DatabaseURL, "@db:5432/chat")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("nonsense"))
}

func TestNewLogger(t *testing.T) {
	var console, file bytes.Buffer
	logger := newLogger(&console, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("conversation created", "conversation_id", "abc")

	assert.Contains(t, console.String(), "conversation created")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, file.String(), `"conversation_id":"abc"`)
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketchat.log")
	logger, closeFn := SetupLogger(path, slog.LevelWarn)

	logger.Info("skipped")
	logger.Warn("relay store failure", "user_id", 7)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"relay store failure"`)
	assert.Contains(t, string(data), `"user_id":7`)
	assert.NotContains(t, string(data), "skipped")
}

func TestSetupLoggerUnopenableFileFallsBack(t *testing.T) {
	logger, closeFn := SetupLogger(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, closeFn())
}
