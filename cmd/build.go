package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/archive"
	"github.com/scholarhunt/scholarhunt/internal/clock/system"
	"github.com/scholarhunt/scholarhunt/internal/config"
	"github.com/scholarhunt/scholarhunt/internal/cv"
	"github.com/scholarhunt/scholarhunt/internal/match"
	"github.com/scholarhunt/scholarhunt/internal/pipeline"
	"github.com/scholarhunt/scholarhunt/internal/scrape"
	"github.com/scholarhunt/scholarhunt/internal/search"
	"github.com/scholarhunt/scholarhunt/internal/store"
)

// buildPipeline wires every collaborator from configuration. It fails
// fast: any unreachable dependency or missing startup input (CV,
// credentials) aborts before the first run.
func buildPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline.Pipeline, *store.SheetsStore, error) {
	cvText, err := cv.Load(cfg.CV.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load cv: %w", err)
	}
	logger.Info("loaded cv", zap.Int("chars", len(cvText)))

	credentials, err := cfg.Sheets.ResolveCredentials()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve sheets credentials: %w", err)
	}

	sheetStore, err := store.New(ctx, credentials, cfg.Sheets.SpreadsheetID, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	if err := sheetStore.EnsureSheet(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure worksheet: %w", err)
	}

	searchClient, err := search.NewClient(ctx, cfg.Search.APIKey, cfg.Search.EngineID, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init search client: %w", err)
	}

	generator, err := match.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("init gemini client: %w", err)
	}

	archiveStore, err := archive.New(ctx, archive.Config{
		Provider: cfg.Archive.Provider,
		Dir:      cfg.Archive.Dir,
		Bucket:   cfg.Archive.Bucket,
		Prefix:   cfg.Archive.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init archive: %w", err)
	}

	deps := pipeline.Deps{
		Search: searchClient,
		Scrape: scrape.New(scrape.Config{
			UserAgent: cfg.Scrape.UserAgent,
			Timeout:   cfg.Scrape.Timeout,
			MaxChars:  cfg.Scrape.MaxChars,
		}, logger),
		Match:   match.NewEvaluator(generator, cvText, logger),
		Store:   sheetStore,
		Archive: archiveStore,
		Clock:   system.New(),
	}
	pipelineCfg := pipeline.Config{
		Query:          cfg.Search.Query,
		MaxResults:     cfg.Search.MaxResults,
		Delay:          cfg.Pipeline.Delay,
		FuzzyThreshold: cfg.Dedupe.FuzzyThreshold,
	}

	return pipeline.New(deps, pipelineCfg, logger), sheetStore, nil
}
