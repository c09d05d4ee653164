package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantregistry/classify"
	"plantregistry/database"
	"plantregistry/internal/config"
	"plantregistry/match"
	"plantregistry/reconcile"
	"plantregistry/server"
	"plantregistry/websearch"
)

func main() {
	configPath := flag.String("config", "", "Path to the JSON config file (optional)")
	seedDemo := flag.Bool("seed-demo", false, "Seed a demo run into an empty database")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.RequireOracleKey(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	store, err := database.NewWithConfig(cfg.DatabasePath, database.Config{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *seedDemo {
		if err := store.SeedDemo(context.Background(), 0); err != nil {
			slog.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	orchestrator := buildOrchestrator(cfg)
	srv := server.New(orchestrator, store)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}

// buildOrchestrator wires the pipeline from the configuration: matcher,
// oracle gateway and the optional web search context provider.
func buildOrchestrator(cfg *config.Config) *reconcile.Orchestrator {
	matcher := match.New(match.Config{
		CompanyThreshold:   cfg.CompanyThreshold,
		PlantNameThreshold: cfg.PlantNameThreshold,
	})

	oracle := classify.NewAIClient(classify.ClientConfig{
		APIKey:  cfg.OracleAPIKey,
		Model:   cfg.OracleModel,
		BaseURL: cfg.OracleBaseURL,
		Timeout: cfg.OracleTimeout,
	})
	gateway := classify.NewGateway(oracle, classify.Config{
		AcceptThreshold: cfg.AcceptThreshold,
	})

	var contexts reconcile.ContextProvider
	if cfg.WebSearchEnabled {
		cacheConfig := websearch.DefaultCacheConfig()
		cacheConfig.TTL = cfg.WebSearchCacheTTL
		contexts = websearch.NewClient(websearch.ClientConfig{
			Timeout: cfg.WebSearchTimeout,
			Cache:   websearch.NewCache(cacheConfig),
		})
	}

	return reconcile.New(matcher, gateway, contexts, reconcile.Options{
		MaxConcurrentPartitions: cfg.MaxConcurrentPartitions,
		ClassifyUnmatched:       true,
	})
}
