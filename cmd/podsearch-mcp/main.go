// Package main provides the entry point for the podsearch MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/config"
	"github.com/raphaelgruber/podsearch/internal/db"
	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/llm"
	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/server"
	"github.com/raphaelgruber/podsearch/internal/service"
	"github.com/raphaelgruber/podsearch/internal/tools"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()
	if path := os.Getenv("PODSEARCH_CONFIG"); path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = fileCfg
	}

	// Setup logger (dual output: stderr text + file JSON). Stdout carries the protocol.
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("podsearch-mcp starting",
		"version", version,
		"index_backend", cfg.IndexBackend,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	collector := metrics.NewCollector()

	// Open the index
	var src index.Source
	switch cfg.IndexBackend {
	case config.BackendSurrealDB:
		dbClient, err := db.NewClient(ctx, db.ConfigFrom(cfg), logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("closing database connection")
			_ = dbClient.Close(context.Background())
		}()
		if err := dbClient.InitSchema(ctx); err != nil {
			logger.Error("failed to initialize database schema", "error", err)
			os.Exit(1)
		}
		src = db.NewDocumentSource(dbClient)
	default:
		src = index.NewFileSource(cfg.IndexPath)
	}
	store := index.NewStore(src, collector)

	stats, err := store.Stats(ctx)
	if err != nil {
		logger.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	logger.Info("index loaded",
		"episodes", stats.EpisodeCount,
		"themes", stats.ThemeCount,
		"quotes", stats.QuoteCount,
	)

	// Create models
	navModel, err := llm.NewModel(ctx, cfg, cfg.LLMModel, collector)
	if err != nil {
		logger.Error("failed to create navigation model", "error", err)
		os.Exit(1)
	}
	synthModel := navModel
	if name := cfg.SynthesisModelName(); name != cfg.LLMModel {
		synthModel, err = llm.NewModel(ctx, cfg, name, collector)
		if err != nil {
			logger.Error("failed to create synthesis model", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("models initialized", "navigation", navModel.Model(), "synthesis", synthModel.Model())

	nav := navigator.New(store, navModel, navigator.Options{
		MaxIterations: cfg.MaxIterations,
		Metrics:       collector,
	})
	verifier := citations.NewVerifier(cfg.SimilarityThreshold, collector)
	research := service.NewResearchService(nav, synthModel, verifier, store)

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		Retriever: nav,
		Research:  research,
		Index:     store,
		Metrics:   collector,
		Logger:    logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)
	logger.Info("tools registered")

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
