package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newHuntCmd creates the 'hunt' subcommand, which executes one full
// search-scrape-match-store pass and exits.
func newHuntCmd() *cobra.Command {
	var (
		query      string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "hunt",
		Short: "Run one scholarship hunting pass",
		Long: `Executes a single pipeline run: search the web, scrape each candidate
page, ask the model to judge fit against the CV, and append matches to
the spreadsheet. Designed to be run from a daily scheduler.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			p, _, err := buildPipeline(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("initialize pipeline: %w", err)
			}

			summary, err := p.Run(cmd.Context(), query, maxResults)
			if err != nil {
				return fmt.Errorf("run pipeline: %w", err)
			}

			a.logger.Info("hunt completed",
				zap.Int("results", summary.Results),
				zap.Int("processed", summary.Processed),
				zap.Int("matches", summary.Matches),
				zap.Duration("elapsed", summary.Elapsed),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "search query (defaults to the configured query)")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum search results to process (defaults to the configured bound)")

	return cmd
}
