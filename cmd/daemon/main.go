// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamdex/streamdex/internal/api"
	"github.com/streamdex/streamdex/internal/catalog"
	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/diskcache"
	"github.com/streamdex/streamdex/internal/favorites"
	"github.com/streamdex/streamdex/internal/jobs"
	xlog "github.com/streamdex/streamdex/internal/log"
	"github.com/streamdex/streamdex/internal/metrics"
	"github.com/streamdex/streamdex/internal/playlist"
	"github.com/streamdex/streamdex/internal/providers"
	"github.com/streamdex/streamdex/internal/xtream"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded
	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: "streamdex",
		Version: version,
	})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auto-load ./config.yaml when no explicit path is given
	effectivePath := *configPath
	if effectivePath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			effectivePath = "config.yaml"
		}
	}

	cfg, err := config.Load(effectivePath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str(xlog.FieldPath, effectivePath).
			Msg("failed to load configuration")
	}

	xlog.Configure(xlog.Config{
		Level:   cfg.LogLevel,
		Service: "streamdex",
		Version: version,
	})

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "startup.mkdir_failed").
				Str(xlog.FieldPath, dir).
				Msg("cannot create data directory")
		}
	}
	// the watcher needs the providers file to exist, even empty
	if err := ensureFile(cfg.ProvidersFile); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.providers_file_failed").
			Str(xlog.FieldPath, cfg.ProvidersFile).
			Msg("cannot create providers file")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Listen).
		Str("data_dir", cfg.DataDir).
		Msg("starting streamdex")

	cache := diskcache.New(cfg.CacheDir, cfg.CacheTTL)
	fetcher := playlist.NewFetcher(cfg.DataDir, nil, cfg.UserAgent, cfg.Referer)
	registry := providers.NewRegistry()
	runner := jobs.NewRunner(cache, fetcher, xtream.Options{HideAdult: cfg.HideAdult}, registry)

	loadProviders := func() []*catalog.Provider {
		list, skipped, err := providers.Load(cfg.ProvidersFile)
		if err != nil {
			logger.Error().
				Err(err).
				Str("event", "providers.load_failed").
				Msg("could not load provider records")
			return registry.List()
		}
		metrics.RecordProviderCounts(len(list), skipped)
		registry.Set(list)
		logger.Info().
			Str("event", "providers.loaded").
			Int("providers", len(list)).
			Int("skipped", skipped).
			Msg("provider records loaded")
		return list
	}
	loadProviders()

	// provider edits trigger a reload plus refresh of the new set
	if err := providers.Watch(ctx, cfg.ProvidersFile, func() {
		list := loadProviders()
		go runner.RefreshAll(ctx, list)
	}); err != nil {
		logger.Error().
			Err(err).
			Str("event", "providers.watch_failed").
			Msg("provider file watching disabled")
	}

	scheduler := jobs.NewScheduler(runner, cfg.RefreshInterval, registry.List)
	go scheduler.Run(ctx)

	favStore := favorites.NewStore(cfg.FavoritesFile, cfg.CacheDir)
	server := api.NewServer(cfg, registry, runner, favStore)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().
				Err(err).
				Str("event", "http.listen_failed").
				Msg("HTTP server failed")
		}
	}()
	logger.Info().
		Str("event", "http.listening").
		Str("addr", cfg.Listen).
		Msg("API listening")

	<-ctx.Done()
	logger.Info().Str("event", "shutdown.start").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().
			Err(err).
			Str("event", "shutdown.http_failed").
			Msg("HTTP shutdown did not complete cleanly")
	}
	logger.Info().Str("event", "shutdown.complete").Msg("stopped")
}

// ensureFile creates an empty file if none exists.
func ensureFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}
