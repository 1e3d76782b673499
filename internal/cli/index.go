package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/podsearch/internal/config"
	"github.com/raphaelgruber/podsearch/internal/db"
	"github.com/raphaelgruber/podsearch/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the index backend",
}

var indexPublishCmd = &cobra.Command{
	Use:   "publish <dir>",
	Short: "Copy a file index into SurrealDB",
	Long: `Publish every document of an index directory (index.json, themes/,
topics/, quotes/) into SurrealDB. Documents from earlier publishes that are
no longer present are removed.

Requires index_backend=surrealdb.

Examples:
  PODSEARCH_INDEX_BACKEND=surrealdb podsearch index publish ./index`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexPublish,
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every document of the configured index",
	Long: `Load and validate every episode, theme, topic and quote document of
the configured index. Exits non-zero on the first malformed document.`,
	Args: cobra.NoArgs,
	RunE: runIndexCheck,
}

func init() {
	indexCmd.AddCommand(indexPublishCmd)
	indexCmd.AddCommand(indexCheckCmd)
}

func runIndexPublish(cmd *cobra.Command, args []string) error {
	if cfg.IndexBackend != config.BackendSurrealDB {
		return fmt.Errorf("index publish requires index_backend=%s (got %s)", config.BackendSurrealDB, cfg.IndexBackend)
	}
	ctx := cmd.Context()

	client, err := connectDB(ctx)
	if err != nil {
		return err
	}
	res, err := db.NewDocumentSource(client).Publish(ctx, index.NewFileSource(args[0]))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, defaultTheme.completedStyle().Render("✓ Published"))
	fmt.Fprintf(w, "  Publish ID: %s\n", res.PublishID)
	fmt.Fprintf(w, "  Documents:  %d (%d bytes)\n", res.Documents, res.Bytes)
	if res.Removed > 0 {
		fmt.Fprintf(w, "  Removed:    %d stale\n", res.Removed)
	}
	fmt.Fprintf(w, "  Duration:   %s\n", res.Duration.Round(time.Millisecond))
	return nil
}

func runIndexCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openIndex(ctx)
	if err != nil {
		return err
	}
	if _, err := store.AllThemes(ctx); err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d episodes, %d themes, %d topics, %d quotes\n",
		defaultTheme.completedStyle().Render("✓ Index OK:"),
		stats.EpisodeCount, stats.ThemeCount, stats.TopicCount, stats.QuoteCount)
	return nil
}
