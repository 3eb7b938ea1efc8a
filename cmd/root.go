// Package cmd defines and implements the CLI commands for the
// scholarhunt executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/config"
	"github.com/scholarhunt/scholarhunt/internal/logging"
	"github.com/scholarhunt/scholarhunt/internal/metrics"
)

var (
	cfgFile  string
	debug    bool
	jsonLogs bool
)

// appKeyType is the key for storing the app in the command context.
type appKeyType string

const appKey appKeyType = "app"

// app holds the configuration and logger shared by all subcommands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scholarhunt",
		Short: "An automation bot that hunts fully funded Master's scholarships.",
		Long: `scholarhunt searches the web for scholarship listings, scrapes the
candidate pages, asks Gemini to judge fit against your CV, and appends
matches to a Google Sheets database. A companion HTTP dashboard renders
the database and can trigger a run on demand.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs after flag parsing but before the subcommand's RunE:
		// the place to build and inject shared services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(debug && !jsonLogs)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				logger.Error("configuration is invalid", zap.Error(err))
				return fmt.Errorf("load config: %w", err)
			}

			metrics.Init()

			ctx := context.WithValue(cmd.Context(), appKey, &app{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok && a != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging with a console encoder")
	cmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "force JSON log output")

	cmd.AddCommand(newHuntCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point. It maps outcomes to process exit
// codes: 0 on success, 130 on interrupt, 1 on any other failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}
