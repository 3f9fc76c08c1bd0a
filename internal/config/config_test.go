package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 18990, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "sqlite", cfg.Session.Store)
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9001
  allowedOrigins: ["http://localhost:5173"]
gemini:
  model: gemini-2.5-pro
session:
  store: memory
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, "memory", cfg.Session.Store)
	// Untouched fields keep defaults.
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, 120, cfg.Gemini.TimeoutSeconds)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOCKMATE_PORT", "7777")
	t.Setenv("MOCKMATE_LOG_LEVEL", "DEBUG")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
}

func TestSensitiveFieldExpansion(t *testing.T) {
	t.Setenv("MY_SECRET", "s3cret")
	path := writeConfig(t, `
gemini:
  apiKey: ${MY_SECRET}
google:
  clientSecret: ${UNSET_VAR_XYZ}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Gemini.APIKey)
	// Unset variables are left as-is.
	assert.Equal(t, "${UNSET_VAR_XYZ}", cfg.Google.ClientSecret)
}
