package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/api"
	"github.com/scholarhunt/scholarhunt/internal/config"
)

// newServeCmd creates the 'serve' subcommand, which runs the dashboard
// HTTP server until interrupted.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server",
		Long: `Serves the dashboard API: scholarship listings with filtering and
sorting, aggregate statistics, credential status, Prometheus metrics,
and an endpoint that triggers the hunting pipeline on demand.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			p, sheetStore, err := buildPipeline(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("initialize pipeline: %w", err)
			}

			if port <= 0 {
				port = a.cfg.Server.Port
			}

			server := api.NewServer(p, sheetStore, api.Config{
				CacheTTL:          a.cfg.Server.CacheTTL,
				AuthEnabled:       a.cfg.Auth.Enabled,
				APIKey:            a.cfg.Auth.APIKey,
				DefaultQuery:      a.cfg.Search.Query,
				DefaultMaxResults: a.cfg.Search.MaxResults,
				Credentials:       credentialStatus(a.cfg),
			}, a.logger)

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("dashboard server listening", zap.Int("port", port))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					a.logger.Warn("server shutdown failed", zap.Error(err))
				}
				return cmd.Context().Err()
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to the configured port)")

	return cmd
}

// credentialStatus reports which required credentials are present, for
// the dashboard's settings view. Only presence booleans leave the
// process.
func credentialStatus(cfg config.Config) map[string]bool {
	sheetsCreds := strings.TrimSpace(cfg.Sheets.CredentialsJSON) != "" ||
		strings.TrimSpace(cfg.Sheets.CredentialsB64) != "" ||
		strings.TrimSpace(cfg.Sheets.CredentialsPath) != ""
	return map[string]bool{
		"gemini_api_key":     cfg.Gemini.APIKey != "",
		"search_api_key":     cfg.Search.APIKey != "",
		"search_engine_id":   cfg.Search.EngineID != "",
		"spreadsheet_id":     cfg.Sheets.SpreadsheetID != "",
		"sheets_credentials": sheetsCreds,
	}
}
