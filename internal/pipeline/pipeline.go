// Package pipeline sequences one scholarship-hunting run: read the
// store, search, then per result dedup, scrape, match, dedup again,
// and append.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scholarhunt/scholarhunt/internal/archive"
	"github.com/scholarhunt/scholarhunt/internal/dedupe"
	"github.com/scholarhunt/scholarhunt/internal/match"
	"github.com/scholarhunt/scholarhunt/internal/metrics"
	"github.com/scholarhunt/scholarhunt/internal/search"
	"github.com/scholarhunt/scholarhunt/internal/store"
)

// Searcher returns search results in provider order.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]search.Result, error)
}

// Scraper fetches a page and returns its cleaned text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Matcher judges a page against the CV; nil means no match.
type Matcher interface {
	Evaluate(ctx context.Context, pageText, url string) *match.Verdict
}

// Store reads and appends scholarship records.
type Store interface {
	Append(ctx context.Context, rec store.Record) error
	ReadAll(ctx context.Context) ([]store.Record, error)
}

// Clock supplies time and the inter-result delay.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Config carries the run-protocol knobs.
type Config struct {
	Query          string
	MaxResults     int
	Delay          time.Duration
	FuzzyThreshold int
}

// Deps wires all collaborators into the pipeline. Archive may be nil.
type Deps struct {
	Search  Searcher
	Scrape  Scraper
	Match   Matcher
	Store   Store
	Archive archive.Store
	Clock   Clock
}

// Pipeline is the orchestrator. Runs are strictly sequential; a
// single Pipeline must not execute two runs concurrently.
type Pipeline struct {
	search  Searcher
	scrape  Scraper
	match   Matcher
	store   Store
	archive archive.Store
	clock   Clock
	cfg     Config
	logger  *zap.Logger
}

// Summary aggregates one run's statistics.
type Summary struct {
	Results   int           `json:"results"`
	Processed int           `json:"processed"`
	Matches   int           `json:"matches"`
	Elapsed   time.Duration `json:"elapsed"`
}

// New constructs the orchestrator.
func New(deps Deps, cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		search:  deps.Search,
		scrape:  deps.Scrape,
		match:   deps.Match,
		store:   deps.Store,
		archive: deps.Archive,
		clock:   deps.Clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes one full pass. An empty query or non-positive max falls
// back to the configured defaults. External-service failures degrade to
// skips; only context cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context, query string, maxResults int) (Summary, error) {
	start := p.clock.Now()
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))

	if query == "" {
		query = p.cfg.Query
	}
	if maxResults <= 0 {
		maxResults = p.cfg.MaxResults
	}

	log.Info("run started", zap.String("query", query), zap.Int("max_results", maxResults))

	index := p.loadIndex(ctx, log)

	results, err := p.search.Search(ctx, query, maxResults)
	if err != nil {
		log.Error("search failed, treating as empty", zap.Error(err))
		results = nil
	}
	metrics.AddSearchResults(len(results))

	if len(results) == 0 {
		summary := Summary{Elapsed: p.clock.Now().Sub(start)}
		log.Warn("no search results found")
		p.logSummary(log, summary)
		metrics.ObserveRun("empty", summary.Elapsed)
		return summary, nil
	}

	summary := Summary{Results: len(results)}
	for i, result := range results {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = p.clock.Now().Sub(start)
			metrics.ObserveRun("aborted", summary.Elapsed)
			return summary, err
		}

		log.Info("processing result",
			zap.Int("position", i+1),
			zap.Int("total", len(results)),
			zap.String("title", result.Title),
			zap.String("url", result.URL),
		)
		p.processResult(ctx, log, runID, index, result, &summary)

		if i < len(results)-1 {
			if err := p.clock.Sleep(ctx, p.cfg.Delay); err != nil {
				summary.Elapsed = p.clock.Now().Sub(start)
				metrics.ObserveRun("aborted", summary.Elapsed)
				return summary, err
			}
		}
	}

	summary.Elapsed = p.clock.Now().Sub(start)
	p.logSummary(log, summary)
	metrics.ObserveRun("completed", summary.Elapsed)
	return summary, nil
}

// loadIndex seeds the run-scoped duplicate index from the store. A read
// failure degrades deduplication to "everything looks new".
func (p *Pipeline) loadIndex(ctx context.Context, log *zap.Logger) *dedupe.Index {
	index := dedupe.NewIndex(p.cfg.FuzzyThreshold)
	records, err := p.store.ReadAll(ctx)
	if err != nil {
		log.Warn("loading existing entries failed, deduplication degraded", zap.Error(err))
		return index
	}
	for _, rec := range records {
		index.Add(rec.OfficialURL, rec.ProgramName)
	}
	log.Info("loaded existing entries", zap.Int("count", index.Len()))
	return index
}

func (p *Pipeline) processResult(
	ctx context.Context,
	log *zap.Logger,
	runID string,
	index *dedupe.Index,
	result search.Result,
	summary *Summary,
) {
	// Cheap pre-filter on the raw title before paying for scrape + LLM.
	if index.IsDuplicate(result.URL, result.Title) {
		log.Info("skipping duplicate", zap.String("url", result.URL))
		metrics.IncPage("duplicate")
		return
	}

	text, err := p.scrape.Scrape(ctx, result.URL)
	if err != nil {
		log.Warn("skipping, failed to scrape", zap.String("url", result.URL), zap.Error(err))
		metrics.IncPage("fetch_failed")
		return
	}
	if text == "" {
		log.Warn("skipping, page has no content", zap.String("url", result.URL))
		metrics.IncPage("empty")
		return
	}

	summary.Processed++
	metrics.IncPage("processed")

	if p.archive != nil {
		if err := p.archive.Put(ctx, archive.Key(runID, result.URL), text); err != nil {
			log.Warn("archiving page failed", zap.String("url", result.URL), zap.Error(err))
		}
	}

	verdict := p.match.Evaluate(ctx, text, result.URL)
	if verdict == nil {
		return
	}

	// The title pre-filter misses programs whose listing title was
	// uninformative; re-check with the extracted canonical name.
	if index.IsDuplicate(result.URL, verdict.ProgramName) {
		log.Info("skipping duplicate detected after analysis",
			zap.String("program_name", verdict.ProgramName),
		)
		metrics.IncPage("duplicate")
		return
	}

	rec := store.Record{
		DateFound:   p.clock.Now(),
		ProgramName: verdict.ProgramName,
		Deadline:    verdict.Deadline,
		OfficialURL: verdict.OfficialURL,
		MatchScore:  verdict.MatchScore,
		Notes:       verdict.Notes,
		Status:      store.StatusNew,
	}
	if err := p.store.Append(ctx, rec); err != nil {
		log.Error("failed to save match", zap.String("program_name", rec.ProgramName), zap.Error(err))
		return
	}

	summary.Matches++
	metrics.IncMatch()
	index.Add(rec.OfficialURL, rec.ProgramName)
}

func (p *Pipeline) logSummary(log *zap.Logger, s Summary) {
	log.Info("run summary",
		zap.Int("search_results", s.Results),
		zap.Int("pages_processed", s.Processed),
		zap.Int("new_matches", s.Matches),
		zap.Duration("elapsed", s.Elapsed),
	)
}
