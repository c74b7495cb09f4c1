package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/intendproject/ingraph/internal/config"
	"github.com/intendproject/ingraph/internal/events"
	"github.com/intendproject/ingraph/internal/logging"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/internal/server"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

func main() {
	// 1. Load .env and configuration
	if err := config.LoadEnvFile(".env", false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	configPath := os.Getenv("INGRAPH_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", configPath, err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Structured logging
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Logging.Level)
	lc.JSON = cfg.Logging.JSON
	logger := logging.New(lc)

	// 3. GraphDB client
	store, err := graphstore.NewClient(cfg.GraphStore())
	if err != nil {
		logger.Error("failed to create GraphDB client", "error", err)
		os.Exit(1)
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 4. Optional event bus. The server keeps running without it.
	reporter := orchestrator.NopReporter
	if cfg.Events.RedisURL != "" {
		bus, err := events.NewBus(cfg.Events.RedisURL, cfg.Events.Namespace, logger)
		if err != nil {
			logger.Error("invalid event bus settings", "error", err)
			os.Exit(1)
		}
		defer bus.Close()

		if err := bus.Ping(runCtx); err != nil {
			logger.Warn("event bus not reachable, events are dropped until it is", "redis", cfg.Events.RedisURL, "error", err)
		} else {
			logger.Info("publishing events", "channel", events.Channel(cfg.Events.Namespace))
		}
		reporter = bus
	}

	// 5. Serve until a signal arrives
	srv := server.New(store, jsonld.NewNormalizer(cfg.JSONLDContext()), reporter, logger, server.Options{
		Addr:              cfg.Server.Addr,
		DefaultRepository: cfg.Server.DefaultRepository,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		HealthTimeout:     cfg.GraphDB.HealthTimeout,
		PublicURL:         cfg.Server.PublicURL,
	})

	logger.Info("ingraph-server starting", "graphdb", cfg.GraphDB.URL, "default_repository", cfg.Server.DefaultRepository)
	if err := srv.ListenAndServe(runCtx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("ingraph-server stopped")
}
