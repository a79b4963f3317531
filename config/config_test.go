package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
server:
  port: 9090
jwt:
  secret: abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "abc", cfg.JWT.Secret)
	assert.Equal(t, 13, cfg.Credits.Initial)
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, 1000, cfg.AI.RetryDelayMs)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.Model)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 0.0001)
	assert.Equal(t, 100, cfg.Packages["basic"].Credits)
	assert.Equal(t, 250, cfg.Packages["pro"].Credits)
	assert.Equal(t, 10, cfg.RateLimit.AI.Limit)
	assert.True(t, cfg.Seed.Enabled)
}

func TestLoad_PrefersLocalConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "server:\n  port: 1000\n")
	writeConfig(t, dir, "config.local.yaml", "server:\n  port: 2000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "stripe:\n  secret_key: from-file\n")
	t.Setenv("STRIPE_SECRET_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Stripe.SecretKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
