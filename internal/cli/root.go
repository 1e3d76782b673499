// Package cli provides the command-line interface for podsearch.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/config"
	"github.com/raphaelgruber/podsearch/internal/db"
	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/llm"
	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	cfg       config.Config
	logger    *slog.Logger
	collector *metrics.Collector

	closeLog = func() error { return nil }
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "podsearch",
	Short: "Research a podcast archive with cited answers",
	Long: `Podsearch answers questions from an indexed podcast archive.

A language model navigates the index (themes, episodes, topics, quotes) to
collect attributed quotes, then an answer is written from them and every
quote in it is checked against the archive before it is shown.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Load()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, closeLog = newLogger(cfg, verbose)
		slog.SetDefault(logger)
		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
			dbClient = nil
		}
		_ = closeLog()
	},
}

// newLogger logs to stderr only in verbose mode so progress output stays
// readable; the JSON log file always receives everything at the configured level.
func newLogger(cfg config.Config, verbose bool) (*slog.Logger, func() error) {
	if verbose {
		return config.SetupLogger(cfg.LogFile, slog.LevelDebug)
	}
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})), func() error { return nil }
	}
	return config.SetupLoggerWithWriters(io.Discard, file, cfg.LogLevel), file.Close
}

// openIndex returns an index store over the configured backend.
func openIndex(ctx context.Context) (*index.Store, error) {
	switch cfg.IndexBackend {
	case config.BackendSurrealDB:
		client, err := connectDB(ctx)
		if err != nil {
			return nil, err
		}
		return index.NewStore(db.NewDocumentSource(client), collector), nil
	default:
		return index.NewStore(index.NewFileSource(cfg.IndexPath), collector), nil
	}
}

// connectDB connects to SurrealDB once per command and initializes the schema.
func connectDB(ctx context.Context) (*db.Client, error) {
	if dbClient != nil {
		return dbClient, nil
	}
	client, err := db.NewClient(ctx, db.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := client.InitSchema(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	dbClient = client
	return client, nil
}

// services bundles what the research commands need.
type services struct {
	index     *index.Store
	navigator *navigator.Navigator
	research  *service.ResearchService
}

// newServices wires the index, models, navigator and research pipeline.
// observer receives navigation events; it may be nil.
func newServices(ctx context.Context, observer func(navigator.Event)) (*services, error) {
	store, err := openIndex(ctx)
	if err != nil {
		return nil, err
	}

	navModel, err := llm.NewModel(ctx, cfg, cfg.LLMModel, collector)
	if err != nil {
		return nil, fmt.Errorf("init navigation model: %w", err)
	}
	synthModel := navModel
	if name := cfg.SynthesisModelName(); name != cfg.LLMModel {
		synthModel, err = llm.NewModel(ctx, cfg, name, collector)
		if err != nil {
			return nil, fmt.Errorf("init synthesis model: %w", err)
		}
	}

	nav := navigator.New(store, navModel, navigator.Options{
		MaxIterations: cfg.MaxIterations,
		Observer:      observer,
		Metrics:       collector,
	})
	verifier := citations.NewVerifier(cfg.SimilarityThreshold, collector)

	return &services{
		index:     store,
		navigator: nav,
		research:  service.NewResearchService(nav, synthModel, verifier, store),
	}, nil
}

// Execute adds all child commands to the root command and runs it.
// Canceling ctx aborts in-flight model calls.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs on stderr, no progress view)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables take precedence)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(indexCmd)
}
