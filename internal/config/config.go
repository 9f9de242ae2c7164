// Package config assembles the daemon configuration from three layers:
// defaults, an optional YAML file, and SDX_* environment overrides, in that
// precedence order (environment wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	xlog "github.com/streamdex/streamdex/internal/log"
)

// Config is the full daemon configuration.
type Config struct {
	// DataDir holds playlists, the providers file and the favorites file.
	DataDir string `yaml:"data_dir"`
	// CacheDir holds Xtream response caches and logo paths. Defaults to
	// DataDir/cache.
	CacheDir string `yaml:"cache_dir"`
	// ProvidersFile is the provider record list. Defaults to DataDir/providers.
	ProvidersFile string `yaml:"providers_file"`
	// FavoritesFile is the favorites list. Defaults to DataDir/favorites.
	FavoritesFile string `yaml:"favorites_file"`

	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// RefreshInterval is the periodic full-refresh cadence.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// CacheTTL is the staleness threshold for cached Xtream responses.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// HideAdult drops adult-flagged live streams during Xtream loads.
	HideAdult bool `yaml:"hide_adult"`

	// UserAgent and Referer are handed to playlist fetches and exposed to the
	// playback collaborator; some providers require them.
	UserAgent string `yaml:"user_agent"`
	Referer   string `yaml:"referer"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:         "./data",
		Listen:          ":8080",
		LogLevel:        "info",
		RefreshInterval: 8 * time.Hour,
		CacheTTL:        8 * time.Hour,
	}
}

// Load builds the effective configuration. path may be empty; a missing file
// at a non-empty path is an error, everything else degrades to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDerived(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	logger := xlog.WithComponent("config")
	cfg.DataDir = parseString(logger, "SDX_DATA_DIR", cfg.DataDir)
	cfg.CacheDir = parseString(logger, "SDX_CACHE_DIR", cfg.CacheDir)
	cfg.ProvidersFile = parseString(logger, "SDX_PROVIDERS_FILE", cfg.ProvidersFile)
	cfg.FavoritesFile = parseString(logger, "SDX_FAVORITES_FILE", cfg.FavoritesFile)
	cfg.Listen = parseString(logger, "SDX_LISTEN", cfg.Listen)
	cfg.LogLevel = parseString(logger, "SDX_LOG_LEVEL", cfg.LogLevel)
	cfg.RefreshInterval = parseDuration(logger, "SDX_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.CacheTTL = parseDuration(logger, "SDX_CACHE_TTL", cfg.CacheTTL)
	cfg.HideAdult = parseBool(logger, "SDX_HIDE_ADULT", cfg.HideAdult)
	cfg.UserAgent = parseString(logger, "SDX_USER_AGENT", cfg.UserAgent)
	cfg.Referer = parseString(logger, "SDX_REFERER", cfg.Referer)
}

// applyDerived fills the paths that default relative to the data directory.
func applyDerived(cfg *Config) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "cache")
	}
	if cfg.ProvidersFile == "" {
		cfg.ProvidersFile = filepath.Join(cfg.DataDir, "providers")
	}
	if cfg.FavoritesFile == "" {
		cfg.FavoritesFile = filepath.Join(cfg.DataDir, "favorites")
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.Listen == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.RefreshInterval < time.Minute {
		return fmt.Errorf("config: refresh_interval %s below minimum of 1m", c.RefreshInterval)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache_ttl must be positive")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

func parseString(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Str("source", "environment").
		Msg("using environment variable")
	return value
}

func parseBool(logger zerolog.Logger, key string, defaultValue bool) bool {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msg("invalid boolean, using default")
		return defaultValue
	}
	return b
}

func parseDuration(logger zerolog.Logger, key string, defaultValue time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}
