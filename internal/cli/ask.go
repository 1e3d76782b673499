package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/service"
)

var (
	askQuick      bool
	askOutputFile string
	askUsage      bool
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Answer a question with verified podcast quotes",
	Long: `Answer a question from the podcast archive.

The navigator selects themes, episodes and topics, collects quotes, and
iterates until coverage is sufficient. An answer is then written from those
quotes and every quote in it is checked against the archive. Quotes that
cannot be matched are flagged as unverified.

--quick skips the sufficiency loop and the sources section.

Examples:
  podsearch ask "How do founders know they have product-market fit?"
  podsearch ask "What does Rahul Vohra say about onboarding?" --quick
  podsearch ask "How should I price a B2B product?" -o pricing.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askQuick, "quick", false, "single retrieval pass, no sources section")
	askCmd.Flags().StringVarP(&askOutputFile, "output", "o", "", "write the answer to a file")
	askCmd.Flags().BoolVar(&askUsage, "usage", false, "print timing and token usage after the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	mode := service.ModeDeep
	if askQuick {
		mode = service.ModeQuick
	}

	out, err := runWithProgress(cmd.Context(), "Researching", func(ctx context.Context, observe func(navigator.Event)) (*service.Output, error) {
		svc, err := newServices(ctx, observe)
		if err != nil {
			return nil, err
		}
		return svc.research.Run(ctx, args[0], mode)
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	answer := renderAnswer(out)
	if askOutputFile != "" {
		if err := os.WriteFile(askOutputFile, []byte(answer), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Answer written to %s\n", askOutputFile)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), answer)
	}

	if askUsage {
		fmt.Fprintln(cmd.OutOrStdout())
		printUsage(cmd.OutOrStdout(), collector.Snapshot())
	}
	return nil
}
