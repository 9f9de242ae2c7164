package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, filepath.Join("./data", "cache"), cfg.CacheDir)
	require.Equal(t, filepath.Join("./data", "providers"), cfg.ProvidersFile)
	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, 8*time.Hour, cfg.CacheTTL)
	require.False(t, cfg.HideAdult)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /var/lib/streamdex
listen: ":9090"
refresh_interval: 2h
hide_adult: true
user_agent: "CustomAgent/1.0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/streamdex", cfg.DataDir)
	require.Equal(t, ":9090", cfg.Listen)
	require.Equal(t, 2*time.Hour, cfg.RefreshInterval)
	require.True(t, cfg.HideAdult)
	require.Equal(t, "CustomAgent/1.0", cfg.UserAgent)
	// derived paths follow the configured data dir
	require.Equal(t, "/var/lib/streamdex/cache", cfg.CacheDir)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9090\"\n"), 0o600))
	t.Setenv("SDX_LISTEN", ":7070")
	t.Setenv("SDX_HIDE_ADULT", "true")
	t.Setenv("SDX_CACHE_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Listen)
	require.True(t, cfg.HideAdult)
	require.Equal(t, 30*time.Minute, cfg.CacheTTL)
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("SDX_HIDE_ADULT", "definitely")
	t.Setenv("SDX_REFRESH_INTERVAL", "not-a-duration")

	cfg, err := Load("")
	require.NoError(t, err)
	require.False(t, cfg.HideAdult)
	require.Equal(t, 8*time.Hour, cfg.RefreshInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"refresh interval too small", func(c *Config) { c.RefreshInterval = time.Second }},
		{"zero cache ttl", func(c *Config) { c.CacheTTL = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			applyDerived(&cfg)
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
