package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/service"
)

var (
	retrieveQuick  bool
	retrieveTopK   int
	retrieveTrace  bool
	retrieveFormat string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Collect quotes for a query without writing an answer",
	Long: `Run the navigator and print the quotes it collects.

Deep retrieval (default) iterates until the collected quotes are judged
sufficient or the iteration cap is reached. --quick runs a single pass and
keeps the first --top-k quotes.

Examples:
  podsearch retrieve "retention tactics for consumer apps"
  podsearch retrieve "pricing" --quick -n 5
  podsearch retrieve "hiring a first PM" --trace
  podsearch retrieve "growth loops" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().BoolVar(&retrieveQuick, "quick", false, "single pass, no sufficiency loop")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "n", service.QuickTopK, "max quotes in quick mode")
	retrieveCmd.Flags().BoolVar(&retrieveTrace, "trace", false, "print the reasoning trace")
	retrieveCmd.Flags().StringVar(&retrieveFormat, "format", formatText, "output format: text, json, yaml")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if err := validateFormat(retrieveFormat); err != nil {
		return err
	}
	if retrieveQuick && (retrieveTopK < 1 || retrieveTopK > navigator.DefaultMaxTotalQuotes) {
		return fmt.Errorf("--top-k must be between 1 and %d", navigator.DefaultMaxTotalQuotes)
	}

	query := args[0]
	res, err := runWithProgress(cmd.Context(), "Retrieving", func(ctx context.Context, observe func(navigator.Event)) (*navigator.Result, error) {
		svc, err := newServices(ctx, observe)
		if err != nil {
			return nil, err
		}
		if retrieveQuick {
			quotes, err := svc.navigator.RetrieveQuick(ctx, query, retrieveTopK)
			if err != nil {
				return nil, err
			}
			return &navigator.Result{Query: query, Quotes: quotes, Iterations: 1}, nil
		}
		return svc.navigator.Retrieve(ctx, query)
	})
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	if retrieveFormat != formatText {
		return writeStructured(cmd.OutOrStdout(), retrieveFormat, res)
	}
	renderRetrieval(cmd.OutOrStdout(), res, retrieveTrace)
	return nil
}
