// Package scrape fetches scholarship pages and extracts their visible text.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior and text extraction.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxChars  int
}

// Scraper fetches single pages using the Colly collector. One GET per
// URL, no retries.
type Scraper struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Scraper.
func New(cfg Config, logger *zap.Logger) *Scraper {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	return &Scraper{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Scrape fetches the URL and returns its cleaned visible text, truncated
// to the configured character budget. Transport errors and non-2xx
// statuses surface as errors; the caller is expected to log and skip.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	body, status, err := s.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("unexpected status %d fetching %s", status, rawURL)
	}

	text, err := ExtractText(body, s.cfg.MaxChars)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", rawURL, err)
	}

	s.logger.Info("scraped page",
		zap.String("url", rawURL),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	collector := s.baseCollector.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	timeout := s.cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, status, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
		}
		if err != nil {
			return nil, status, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		return body, status, nil
	}
}

// ExtractText parses HTML, drops script/style/nav/footer/header
// subtrees, collapses whitespace runs into single spaces, and truncates
// to maxChars characters.
func ExtractText(body []byte, maxChars int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	text := strings.Join(strings.Fields(doc.Text()), " ")

	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return text, nil
}
