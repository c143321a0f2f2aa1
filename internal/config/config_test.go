package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 12, cfg.Network.Timeout)
	assert.Equal(t, 3, cfg.Network.MaxAttempts)
	assert.Equal(t, 500, cfg.Network.BackoffMillis)
	assert.Equal(t, "es-ES,es;q=0.9,en;q=0.8", cfg.Network.AcceptLanguage)
	assert.True(t, cfg.Extraction.VerifyImages)
	assert.Equal(t, "never", cfg.Extraction.EnableJavaScript)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[network]
timeout = 5
max_attempts = 2

[extraction]
verify_images = false

[server]
addr = ":9999"
environment = "production"

[logging]
level = "debug"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Network.Timeout)
	assert.Equal(t, 2, cfg.Network.MaxAttempts)
	assert.False(t, cfg.Extraction.VerifyImages)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 500, cfg.Network.BackoffMillis)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
