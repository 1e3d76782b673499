package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/service"
)

var (
	verifyEpisodes []string
	verifyFormat   string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file|->",
	Short: "Check the quotes in a text against episode transcripts",
	Long: `Verify every quoted passage in a markdown text against the quotes of
the given episodes. Matched quotes get an inline citation; unmatched ones
are flagged as unverified.

Examples:
  podsearch verify draft.md --episode rahul-vohra --episode brian-chesky
  pbpaste | podsearch verify - -e lenny-rachitsky`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringSliceVarP(&verifyEpisodes, "episode", "e", nil, "episode ids to verify against (required)")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", formatText, "output format: text, json, yaml")
	_ = verifyCmd.MarkFlagRequired("episode")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := validateFormat(verifyFormat); err != nil {
		return err
	}
	text, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openIndex(ctx)
	if err != nil {
		return err
	}
	verifier := citations.NewVerifier(cfg.SimilarityThreshold, collector)
	research := service.NewResearchService(nil, nil, verifier, store)

	report, err := research.Verify(ctx, text, verifyEpisodes)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if verifyFormat != formatText {
		return writeStructured(cmd.OutOrStdout(), verifyFormat, report)
	}
	renderReport(cmd.OutOrStdout(), report)
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
