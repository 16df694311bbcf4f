package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grimoire.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "https://wago.tools", cfg.Source.BaseURL)
	assert.Equal(t, 5.0, cfg.Source.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Source.Burst)
	assert.Equal(t, 60*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[source]
build = "11.0.2.56421"
requests_per_second = 2.5
timeout = "30s"

[store]
path = "cache.db"

[engine]
preload_limit = 4
`)
	cfg, err := load(path, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "11.0.2.56421", cfg.Source.Build)
	assert.Equal(t, 2.5, cfg.Source.RequestsPerSecond)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "cache.db", cfg.Store.Path)
	assert.Equal(t, 4, cfg.Engine.PreloadLimit)
	// Untouched keys keep their defaults.
	assert.Equal(t, "https://wago.tools", cfg.Source.BaseURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[store]\npath = \"file.db\"\n")
	cfg, err := load(path, map[string]string{
		"GRIMOIRE_STORE_PATH":     "env.db",
		"GRIMOIRE_SOURCE_DIR":     "/tables",
		"GRIMOIRE_LOG_LEVEL":      "debug",
		"GRIMOIRE_SOURCE_BURST":   "10",
		"GRIMOIRE_SOURCE_TIMEOUT": "2m",
	})
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "/tables", cfg.Source.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Source.Burst)
	assert.Equal(t, 2*time.Minute, cfg.Source.Timeout)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "[source]\nbase_ulr = \"https://example.com\"\n")
	_, err := load(path, map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.base_ulr")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.toml"), map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_BadEnv(t *testing.T) {
	_, err := load("", map[string]string{"GRIMOIRE_SOURCE_BURST": "many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.Source.BaseURL = "not a url" }, "BaseURL"},
		{"no source", func(c *Config) { c.Source.BaseURL = "" }, "BaseURL"},
		{"zero burst", func(c *Config) { c.Source.Burst = 0 }, "Burst"},
		{"negative rate", func(c *Config) { c.Source.RequestsPerSecond = -1 }, "RequestsPerSecond"},
		{"zero timeout", func(c *Config) { c.Source.Timeout = 0 }, "Timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "Format"},
		{"negative preload", func(c *Config) { c.Engine.PreloadLimit = -1 }, "PreloadLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("dir without url", func(t *testing.T) {
		cfg := Default()
		cfg.Source.BaseURL = ""
		cfg.Source.Dir = "/tables"
		assert.NoError(t, cfg.Validate())
	})
}
