package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedvault/feedvault/app/api"
	"github.com/feedvault/feedvault/app/cfg"
	"github.com/feedvault/feedvault/app/database"
	"github.com/feedvault/feedvault/app/feed"
	"github.com/feedvault/feedvault/app/registry"
	"github.com/feedvault/feedvault/app/rss"
	"github.com/feedvault/feedvault/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting FeedVault", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	// Seed the registry from the configured file and keep it in sync while
	// the service runs
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	if appCfg.SeedFile != "" {
		reg := registry.New(appCfg.SeedFile, feedRepo)
		if err := reg.Reload(); err != nil {
			slog.Error("Failed to load seed file", "path", appCfg.SeedFile, "error", err)
			os.Exit(1)
		}

		go func() {
			if err := reg.Watch(watchCtx); err != nil {
				slog.Warn("Seed file watcher stopped", "error", err)
			}
		}()
	}

	httpClient := &http.Client{}
	fetcher := feed.NewHTTPFetcher(httpClient, appCfg.UserAgent, appCfg.MaxSummaryLength)
	refresher := feed.NewRefresher(fetcher, feedRepo, itemRepo,
		time.Duration(appCfg.FetchTimeout)*time.Second, appCfg.MaxItems, appCfg.WorkerCount)
	extractor := feed.NewContentExtractor()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(feedRepo, itemRepo, refresher, httpClient, extractor)
	scheduler.Start()
	defer scheduler.Stop()

	baseURL := appCfg.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + appCfg.Port
	}
	generator := rss.NewGenerator(baseURL)

	handler := api.NewHandler(feedRepo, itemRepo, refresher, generator, scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and watcher are stopped via defers
	slog.Info("Shutdown complete")
}
