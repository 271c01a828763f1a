package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/localrivet/localmcp/internal/config"
	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse builds the root command, parses args and resolves the config without running.
func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))

	flags := &rootFlags{}
	flags.configPath, _ = cmd.Flags().GetString("config")
	flags.transport, _ = cmd.Flags().GetString("transport")
	flags.host, _ = cmd.Flags().GetString("host")
	flags.port, _ = cmd.Flags().GetInt("port")
	flags.path, _ = cmd.Flags().GetString("path")
	flags.store, _ = cmd.Flags().GetString("store")
	flags.logLevel, _ = cmd.Flags().GetString("log-level")
	flags.logFormat, _ = cmd.Flags().GetString("log-format")
	return resolveConfig(cmd, flags)
}

func TestDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.json")

	cfg, err := parse(t, "--config", missing)
	require.NoError(t, err)

	assert.Equal(t, "stdio", cfg.Transport.Mode)
	assert.Equal(t, "localhost:8000", cfg.Address())
	assert.Equal(t, "/mcp", cfg.Transport.Path)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"transport": {"mode": "http", "host": "0.0.0.0", "port": 9000, "path": "/rpc"},
		"logging": {"level": "ERROR"}
	}`), 0o644))

	cfg, err := parse(t, "--config", path, "--port", "9100", "--log-level", "debug", "--store", "sqlite")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Transport.Mode)
	assert.Equal(t, "0.0.0.0:9100", cfg.Address())
	assert.Equal(t, "/rpc", cfg.Transport.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestInvalidFlags(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.json")

	tests := [][]string{
		{"--transport", "grpc"},
		{"--log-level", "LOUD"},
		{"--port", "0"},
		{"--path", "mcp"},
	}
	for _, args := range tests {
		_, err := parse(t, append([]string{"--config", missing}, args...)...)
		require.Error(t, err, args)
		assert.True(t, errortypes.IsValidationError(err), args)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "localmcp version")
}
