package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/podsearch/internal/config"
	"github.com/raphaelgruber/podsearch/internal/metrics"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Count the episodes, themes, topics and quotes in the configured index.

Examples:
  podsearch stats
  podsearch stats --format json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", formatText, "output format: text, json, yaml")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := validateFormat(statsFormat); err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openIndex(ctx)
	if err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("index stats: %w", err)
	}

	if statsFormat != formatText {
		return writeStructured(cmd.OutOrStdout(), statsFormat, stats)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Index Statistics (%s: %s)\n", cfg.IndexBackend, indexLocation())
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Episodes: %d\n", stats.EpisodeCount)
	fmt.Fprintf(w, "Themes:   %d\n", stats.ThemeCount)
	fmt.Fprintf(w, "Topics:   %d\n", stats.TopicCount)
	fmt.Fprintf(w, "Quotes:   %d\n", stats.QuoteCount)
	if verbose {
		fmt.Fprintln(w)
		printUsage(w, collector.Snapshot())
	}
	return nil
}

func indexLocation() string {
	if cfg.IndexBackend == config.BackendSurrealDB {
		return cfg.SurrealDBURL
	}
	return cfg.IndexPath
}

// printUsage displays the timing and token statistics of this run.
func printUsage(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintf(w, "Usage Statistics (this run)\n")
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Elapsed: %.1f seconds\n", snap.UptimeSeconds)

	if snap.IndexLoad != nil {
		fmt.Fprintf(w, "\nIndex Load:\n")
		printOpStats(w, snap.IndexLoad)
	}

	if snap.NavigationStep != nil {
		fmt.Fprintf(w, "\nNavigation Steps:\n")
		printOpStats(w, snap.NavigationStep)
	}

	if snap.LLMGenerate != nil {
		fmt.Fprintf(w, "\nLLM Generate:\n")
		printOpStats(w, snap.LLMGenerate)
		printTokenStats(w, snap.LLMGenerate)
	}

	if snap.Verification != nil {
		fmt.Fprintf(w, "\nVerification:\n")
		printOpStats(w, snap.Verification)
	}

	if len(snap.Counters) > 0 {
		fmt.Fprintf(w, "\nCounters:\n")
		for _, name := range []string{metrics.CounterVerifiedQuotes, metrics.CounterUnverifiedQuotes, metrics.CounterHallucinatedIDs} {
			if n, ok := snap.Counters[name]; ok {
				fmt.Fprintf(w, "  %-18s %d\n", name+":", n)
			}
		}
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printTokenStats displays token statistics if available.
func printTokenStats(w io.Writer, op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Fprintf(w, "  Tokens In:  %d total", *op.TotalInputTokens)
	if op.AvgInputTokens != nil {
		fmt.Fprintf(w, ", avg %.0f", *op.AvgInputTokens)
	}
	if op.MinInputTokens != nil && op.MaxInputTokens != nil {
		fmt.Fprintf(w, ", min %d, max %d", *op.MinInputTokens, *op.MaxInputTokens)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Tokens Out: %d total", *op.TotalOutputTokens)
	if op.AvgOutputTokens != nil {
		fmt.Fprintf(w, ", avg %.0f", *op.AvgOutputTokens)
	}
	if op.MinOutputTokens != nil && op.MaxOutputTokens != nil {
		fmt.Fprintf(w, ", min %d, max %d", *op.MinOutputTokens, *op.MaxOutputTokens)
	}
	fmt.Fprintln(w)
}
