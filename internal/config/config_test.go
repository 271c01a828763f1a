package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/localrivet/localmcp/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, TransportStdio, cfg.Transport.Mode)
	assert.Equal(t, "localhost", cfg.Transport.Host)
	assert.Equal(t, 8000, cfg.Transport.Port)
	assert.Equal(t, "/mcp", cfg.Transport.Path)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "localhost:8000", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	cfg, err := LoadConfigWithPath(path, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Transport.Mode)
	assert.Equal(t, DefaultPort, cfg.Transport.Port)
	assert.Equal(t, path, cfg.GetConfigPath())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"transport": {"mode": "http", "host": "0.0.0.0", "port": 9100, "path": "/rpc", "shutdown_timeout_seconds": 3},
		"store": {"backend": "sqlite"},
		"logging": {"level": "DEBUG", "format": "json"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigWithPath(path, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, TransportHTTP, cfg.Transport.Mode)
	assert.Equal(t, "0.0.0.0:9100", cfg.Address())
	assert.Equal(t, "/rpc", cfg.Transport.Path)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)

	lc := cfg.LoggerConfig()
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.Equal(t, logger.JSON, lc.Format)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transport": {"mode": "websocket"}}`), 0o644))

	_, err := LoadConfigWithPath(path, quietLogger())
	require.Error(t, err)
	assert.True(t, errortypes.IsValidationError(err) || errortypes.IsType(err, errortypes.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown transport", func(c *Config) { c.Transport.Mode = "grpc" }},
		{"port zero", func(c *Config) { c.Transport.Port = 0 }},
		{"port too large", func(c *Config) { c.Transport.Port = 70000 }},
		{"relative path", func(c *Config) { c.Transport.Path = "mcp" }},
		{"health path", func(c *Config) { c.Transport.Path = HealthPath }},
		{"negative shutdown", func(c *Config) { c.Transport.ShutdownTimeoutSeconds = -1 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"unknown level", func(c *Config) { c.Logging.Level = "TRACE" }},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errortypes.IsValidationError(err))
		})
	}
}

func TestValidateAcceptsLevelAliases(t *testing.T) {
	for _, level := range []string{"debug", "WARNING", "warn", "ERROR", "CRITICAL"} {
		cfg := NewConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}
}

func TestSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := NewConfig()
	cfg.Transport.Port = 8123
	require.NoError(t, cfg.SaveToFile(path))
	assert.Equal(t, path, cfg.GetConfigPath())

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestLoadConfigKeepsStdoutClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging": {"level": "DEBUG"}}`), 0o644))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w

	_, loadErr := LoadConfigWithPath(path, nil)

	os.Stdout = stdout
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	require.NoError(t, loadErr)
	assert.Empty(t, string(out), "stdout carries the stdio transport and must stay empty")
}
